// Package mfa implements TOTP second-factor enrollment and verification with
// single-use backup codes.
//
// Codes follow RFC 6238 (HMAC-SHA1 by default, SHA256 and SHA512
// selectable). Secrets are stored hex encoded inside the vault and handed to
// the user once as base32 plus an otpauth:// URI. Backup codes are stored as
// SHA-256 digests and removed when used.
package mfa
