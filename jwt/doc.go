// Package jwt signs and verifies session assertions: short-lived tokens that
// carry a user id, session id and device id so an HTTP layer can present a
// local session as a bearer token.
package jwt
