// Package password hashes, verifies and grades user passwords.
//
// # Output format
//
// New hashes are PHC-encoded argon2id strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.Check] also accepts the two legacy formats written by earlier
// releases (salted and unsalted SHA-256 hex) and reports Rehash so the caller
// can replace them on the next successful login.
//
// [Policy] grades password strength. It has no storage or logging side effects.
//
// This package must not import other authcore packages except internal.
package password
