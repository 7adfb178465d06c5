package password

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooLong is returned for inputs above the byte limit.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	ErrEmptyPassword   = errors.New("password must not be empty")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns production parameters (64 MiB, 3 passes, 2 lanes).
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case c.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < 0:
		return errors.New("password max bytes must be >= 0")
	}
	return nil
}

// Argon2 produces and checks argon2id PHC strings. Safe for concurrent use.
type Argon2 struct {
	cfg Config
}

func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash derives a fresh argon2id hash with a random salt. The password bytes
// are used as given, with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.cfg.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt, err := internal.RandomBytes(int(a.cfg.SaltLength))
	if err != nil {
		return "", err
	}
	h := phcHash{
		memory:      a.cfg.Memory,
		passes:      a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        salt,
		key:         make([]byte, a.cfg.KeyLength),
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Verify reports whether password matches encoded. A malformed hash is an
// error wrapping ErrMalformedHash; a mismatch is not an error.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded is cheaper than the current config
// or uses a different key length.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.cfg.Memory ||
		h.passes < a.cfg.Time ||
		h.parallelism < a.cfg.Parallelism ||
		uint32(len(h.key)) != a.cfg.KeyLength
	return weaker, nil
}
