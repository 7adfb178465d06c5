package authcore

import (
	"errors"
	"strings"
	"time"
)

// Config is the full Engine configuration. Start from DefaultConfig or
// TestConfig and override fields; Builder.Build rejects anything that fails
// Validate.
type Config struct {
	Password      PasswordConfig
	Account       AccountConfig
	Login         LoginConfig
	Lockout       LockoutConfig
	PasswordReset PasswordResetConfig
	MFA           MFAConfig
	Session       SessionConfig
	SessionToken  SessionTokenConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Storage       StorageConfig
	Security      SecurityConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the strength policy.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	// UpgradeOnLogin re-hashes legacy and under-cost hashes after a
	// successful login.
	UpgradeOnLogin bool

	MinLength int
	// Denylist entries are rejected as case-insensitive substrings.
	Denylist []string
}

// AccountConfig controls registration.
type AccountConfig struct {
	// CaseInsensitiveEmail folds case when matching emails. The default is
	// an exact match.
	CaseInsensitiveEmail bool
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig holds the timing equalization delays.
type LoginConfig struct {
	// LockedDelay is slept before reporting a locked account.
	LockedDelay time.Duration
	// MinVerifyDelay and MaxVerifyDelay bound the random delay added after
	// every password verification, successful or not.
	MinVerifyDelay time.Duration
	MaxVerifyDelay time.Duration
}

// LockoutConfig holds the two attempt limiters.
type LockoutConfig struct {
	LoginMaxAttempts  int
	LoginResetAfter   time.Duration
	LoginLockDuration time.Duration

	ResetMaxAttempts  int
	ResetResetAfter   time.Duration
	ResetLockDuration time.Duration
}

// PasswordResetConfig controls reset token issuance.
type PasswordResetConfig struct {
	TokenTTL   time.Duration
	TokenBytes int
	// RevokeSessions signs the user out everywhere after a reset.
	RevokeSessions bool
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig controls TOTP enrollment and verification.
type MFAConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	Skew      int

	BackupCodeCount  int
	BackupCodeDigits int

	EnforceReplayProtection bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the per-user session lists.
type SessionConfig struct {
	MaxAge time.Duration
	// MaxSessionsPerUser evicts the oldest sessions beyond the cap. Zero
	// means unlimited.
	MaxSessionsPerUser int
}

// SessionTokenConfig controls signed session assertions. Disabled by
// default.
type SessionTokenConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// StorageConfig controls the encrypted store.
type StorageConfig struct {
	// LegacyPlaintext accepts values written before encryption was added
	// and re-encrypts them on read.
	LegacyPlaintext bool
}

// SecurityConfig holds deployment posture switches.
type SecurityConfig struct {
	// ProductionMode rejects configurations that are only acceptable in
	// tests (cheap Argon2, zero login delays, short-key HS256).
	ProductionMode bool
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:           64 * 1024,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
			MinLength:        12,
		},
		Account: AccountConfig{
			CaseInsensitiveEmail: false,
		},
		Login: LoginConfig{
			LockedDelay:    time.Second,
			MinVerifyDelay: 500 * time.Millisecond,
			MaxVerifyDelay: time.Second,
		},
		Lockout: LockoutConfig{
			LoginMaxAttempts:  5,
			LoginResetAfter:   15 * time.Minute,
			LoginLockDuration: 30 * time.Minute,
			ResetMaxAttempts:  3,
			ResetResetAfter:   time.Hour,
			ResetLockDuration: time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:       15 * time.Minute,
			TokenBytes:     16,
			RevokeSessions: true,
		},
		MFA: MFAConfig{
			Issuer:           "Studentopia",
			Digits:           6,
			Period:           30,
			Algorithm:        "SHA1",
			Skew:             1,
			BackupCodeCount:  10,
			BackupCodeDigits: 8,
		},
		Session: SessionConfig{
			MaxAge: 90 * 24 * time.Hour,
		},
		SessionToken: SessionTokenConfig{
			Enabled:       false,
			TTL:           15 * time.Minute,
			SigningMethod: "ed25519",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Password.Denylist = append([]string(nil), cfg.Password.Denylist...)
	out.SessionToken.PrivateKey = cloneBytes(cfg.SessionToken.PrivateKey)
	out.SessionToken.PublicKey = cloneBytes(cfg.SessionToken.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be > 0")
	}

	// Login
	if c.Login.LockedDelay < 0 {
		return errors.New("Login LockedDelay must be >= 0")
	}
	if c.Login.MinVerifyDelay < 0 {
		return errors.New("Login MinVerifyDelay must be >= 0")
	}
	if c.Login.MaxVerifyDelay < c.Login.MinVerifyDelay {
		return errors.New("Login MaxVerifyDelay must be >= MinVerifyDelay")
	}

	// Lockout
	if c.Lockout.LoginMaxAttempts <= 0 {
		return errors.New("Lockout LoginMaxAttempts must be > 0")
	}
	if c.Lockout.LoginResetAfter <= 0 || c.Lockout.LoginLockDuration <= 0 {
		return errors.New("Lockout login durations must be > 0")
	}
	if c.Lockout.ResetMaxAttempts <= 0 {
		return errors.New("Lockout ResetMaxAttempts must be > 0")
	}
	if c.Lockout.ResetResetAfter <= 0 || c.Lockout.ResetLockDuration <= 0 {
		return errors.New("Lockout reset durations must be > 0")
	}

	// Password reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.TokenBytes < 16 {
		return errors.New("PasswordReset TokenBytes must be >= 16")
	}

	// MFA
	if c.MFA.Digits < 6 || c.MFA.Digits > 8 {
		return errors.New("MFA Digits must be between 6 and 8")
	}
	if c.MFA.Period <= 0 {
		return errors.New("MFA Period must be > 0")
	}
	switch strings.ToUpper(c.MFA.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("MFA Algorithm must be SHA1, SHA256 or SHA512")
	}
	if c.MFA.Skew < 0 || c.MFA.Skew > 3 {
		return errors.New("MFA Skew must be between 0 and 3")
	}
	if c.MFA.BackupCodeCount <= 0 {
		return errors.New("MFA BackupCodeCount must be > 0")
	}
	if c.MFA.BackupCodeDigits < 6 || c.MFA.BackupCodeDigits > 12 {
		return errors.New("MFA BackupCodeDigits must be between 6 and 12")
	}

	// Session
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session MaxSessionsPerUser must be >= 0")
	}

	// Session tokens
	if c.SessionToken.Enabled {
		if c.SessionToken.TTL <= 0 {
			return errors.New("SessionToken TTL must be > 0")
		}
		switch c.SessionToken.SigningMethod {
		case "ed25519":
			if len(c.SessionToken.PrivateKey) == 0 || len(c.SessionToken.PublicKey) == 0 {
				return errors.New("ed25519 requires PrivateKey and PublicKey")
			}
		case "hs256":
			if len(c.SessionToken.PrivateKey) == 0 {
				return errors.New("hs256 requires PrivateKey")
			}
		default:
			return errors.New("unsupported SessionToken signing method")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if c.Security.ProductionMode {
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if c.Password.MinLength < 12 {
			return errors.New("ProductionMode requires Password MinLength >= 12")
		}
		if c.Login.MinVerifyDelay <= 0 || c.Login.LockedDelay <= 0 {
			return errors.New("ProductionMode requires non-zero login delays")
		}
		if c.SessionToken.Enabled && c.SessionToken.SigningMethod == "hs256" && len(c.SessionToken.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
	}

	return nil
}
