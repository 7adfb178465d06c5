// Package stores persists the long-lived auth records: the credential list
// and pending password-reset tokens.
//
// Every record lives in the vault under a fixed key and is updated through
// vault.Mutate. Reset tokens are stored as SHA-256 digests and compared in
// constant time; plaintext tokens never reach storage.
//
// This package does not generate tokens or make authentication decisions.
// Those belong to the flow functions in internal/flows.
package stores
