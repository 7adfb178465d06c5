package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

// ErrCryptoUnavailable is returned when the system CSPRNG cannot be read.
// Callers treat it as fatal; there is no weaker fallback.
var ErrCryptoUnavailable = errors.New("secure random source unavailable")

// Reader is the entropy source. Tests may swap it to simulate RNG failure.
var Reader io.Reader = rand.Reader

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("random length must be > 0")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(Reader, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return buf, nil
}

// RandomHex returns n random bytes, hex encoded (2n characters).
func RandomHex(n int) (string, error) {
	raw, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256HexString is SHA256Hex over the raw bytes of s.
func SHA256HexString(s string) string {
	return SHA256Hex([]byte(s))
}

// NumericCode returns a uniformly random decimal string of the given length.
func NumericCode(digits int) (string, error) {
	if digits < 4 || digits > 12 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(Reader, max)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// RandomDuration returns a uniformly random duration in [min, max].
func RandomDuration(min, max time.Duration) (time.Duration, error) {
	if max <= min {
		return min, nil
	}
	span := big.NewInt(int64(max-min) + 1)
	n, err := rand.Int(Reader, span)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return min + time.Duration(n.Int64()), nil
}
