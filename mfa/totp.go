package mfa

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SecretBytes is the size of a generated TOTP secret (160 bits).
const SecretBytes = 20

// ErrUnsupportedAlgorithm is returned for HMAC algorithms other than SHA1,
// SHA256 and SHA512.
var ErrUnsupportedAlgorithm = errors.New("unsupported totp algorithm")

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPConfig describes RFC 6238 code generation.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	// Skew is the number of adjacent steps accepted on each side.
	Skew int
}

// DefaultTOTPConfig is what standard authenticator apps expect: SHA1, six
// digits, 30 second steps, one step of skew either way.
func DefaultTOTPConfig() TOTPConfig {
	return TOTPConfig{
		Issuer:    "Studentopia",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	}
}

func (c TOTPConfig) validate() error {
	if c.Digits < 6 || c.Digits > 8 {
		return errors.New("totp digits must be between 6 and 8")
	}
	if c.Period <= 0 {
		return errors.New("totp period must be > 0")
	}
	if c.Skew < 0 || c.Skew > 3 {
		return errors.New("totp skew must be between 0 and 3")
	}
	if _, err := hmacFunc(c.Algorithm); err != nil {
		return err
	}
	return nil
}

// GenerateCode returns the code for secret at time t.
func GenerateCode(secret []byte, t time.Time, cfg TOTPConfig) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty totp secret")
	}
	return hotpCode(secret, t.Unix()/int64(cfg.Period), cfg.Digits, cfg.Algorithm)
}

// EncodeSecret renders secret the way authenticator apps accept it.
func EncodeSecret(secret []byte) string {
	return base32NoPad.EncodeToString(secret)
}

// DecodeSecret accepts an unpadded base32 secret in either case.
func DecodeSecret(s string) ([]byte, error) {
	return base32NoPad.DecodeString(strings.ToUpper(strings.TrimSpace(s)))
}

// ProvisionURI builds the otpauth:// URI rendered as a QR code.
func ProvisionURI(cfg TOTPConfig, secretBase32, account string) string {
	issuer := cfg.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(cfg.Period))
	v.Set("digits", strconv.Itoa(cfg.Digits))
	v.Set("algorithm", strings.ToUpper(cfg.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// verifyTOTP checks code within the skew window and returns the matched
// counter.
func verifyTOTP(secret []byte, code string, now time.Time, cfg TOTPConfig) (bool, int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != cfg.Digits || !isNumeric(trimmed) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, errors.New("empty totp secret")
	}

	baseCounter := now.Unix() / int64(cfg.Period)
	for step := -cfg.Skew; step <= cfg.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, cfg.Digits, cfg.Algorithm)
		if err != nil {
			return false, 0, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

func isNumeric(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
