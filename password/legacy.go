package password

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
)

// Format identifies how a stored password hash was produced.
type Format uint8

const (
	FormatUnknown Format = iota
	// FormatArgon2id is the current PHC format.
	FormatArgon2id
	// FormatSaltedSHA256 is "salt:sha256hex(salt+password)".
	FormatSaltedSHA256
	// FormatSHA256 is a bare sha256hex(password) from the first releases.
	FormatSHA256
)

func (f Format) String() string {
	switch f {
	case FormatArgon2id:
		return "argon2id"
	case FormatSaltedSHA256:
		return "salted-sha256"
	case FormatSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// ErrUnknownFormat is returned when a stored hash matches no supported format.
var ErrUnknownFormat = errors.New("unknown password hash format")

// Detect classifies a stored hash without verifying anything.
func Detect(stored string) Format {
	switch {
	case strings.HasPrefix(stored, "$"+algorithmID+"$"):
		return FormatArgon2id
	case isHex(stored, 64):
		return FormatSHA256
	}

	salt, digest, ok := strings.Cut(stored, ":")
	if ok && salt != "" && isHex(digest, 64) {
		return FormatSaltedSHA256
	}
	return FormatUnknown
}

// Result is the outcome of Check.
type Result struct {
	Match bool
	// Rehash is set when the password matched but the stored hash should be
	// replaced with a fresh argon2id hash.
	Rehash bool
	Format Format
}

// Check verifies password against any supported stored format. A legacy
// match always sets Rehash; an argon2id match sets it when the cost
// parameters have since been raised.
func (a *Argon2) Check(password, stored string) (Result, error) {
	format := Detect(stored)
	res := Result{Format: format}

	switch format {
	case FormatArgon2id:
		ok, err := a.Verify(password, stored)
		if err != nil {
			return res, err
		}
		res.Match = ok
		if ok {
			upgrade, err := a.NeedsUpgrade(stored)
			if err != nil {
				return res, err
			}
			res.Rehash = upgrade
		}
		return res, nil
	case FormatSaltedSHA256:
		salt, digest, _ := strings.Cut(stored, ":")
		res.Match = equalHex(internal.SHA256HexString(salt+password), digest)
	case FormatSHA256:
		res.Match = equalHex(internal.SHA256HexString(password), stored)
	default:
		return res, ErrUnknownFormat
	}

	res.Rehash = res.Match
	return res, nil
}

// LegacySalted produces the salted SHA-256 format. It exists for fixtures and
// import tooling; new hashes are always argon2id.
func LegacySalted(salt, password string) string {
	return salt + ":" + internal.SHA256HexString(salt+password)
}

func equalHex(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(a)), []byte(strings.ToLower(b))) == 1
}

func isHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
