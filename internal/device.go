package internal

// IdentifierDigest returns a short, stable digest of an account identifier
// for audit metadata and log fields, so raw emails never leave the process.
func IdentifierDigest(identifier string) string {
	if identifier == "" {
		return ""
	}
	return SHA256HexString(identifier)[:16]
}
