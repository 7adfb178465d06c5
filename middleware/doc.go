// Package middleware adapts authcore session tokens to net/http.
//
// [RequireSession] reads the Authorization header, calls
// Engine.VerifySessionToken and stores the verified claims in the request
// context for [ClaimsFromContext]. [ClientIP] records the caller address for
// audit events.
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly.
//   - Touch the store.
//   - Decide anything beyond pass or reject.
package middleware
