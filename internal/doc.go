// Package internal holds the cryptographic primitives shared by every other
// package: CSPRNG bytes, SHA-256 hex digests, numeric codes and jitter.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for the Engine operations
//   - keylock: per-key mutual exclusion for read-modify-write cycles
//   - limiters: attempt counters with lockout (login, password reset)
//   - stores: credential and reset-token records on top of the vault
//
// # What this package must NOT do
//
//   - Fall back to math/rand when crypto/rand fails.
//   - Be imported by any package outside this module.
package internal
