// Package session tracks the signed-in devices of each user.
//
// Each user has one session list in the vault, pruned of entries older than
// [DefaultMaxAge] whenever a session is created or found expired. The
// install keeps two pointers next to the lists: its device id and the id of
// its current session.
//
// This package does not authenticate anyone. The Engine creates sessions
// after a successful login and consults [Manager.IsSessionValid] when a
// session token is presented.
package session
