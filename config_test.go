package authcore

import (
	"testing"
	"time"
)

func TestConfigValidateEnums(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test config valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "mfa algorithm sha256 valid",
			mutate: func(c *Config) {
				c.MFA.Algorithm = "sha256"
			},
			wantValid: true,
		},
		{
			name: "mfa algorithm md5 invalid",
			mutate: func(c *Config) {
				c.MFA.Algorithm = "MD5"
			},
			wantValid: false,
		},
		{
			name: "mfa digits too many",
			mutate: func(c *Config) {
				c.MFA.Digits = 9
			},
			wantValid: false,
		},
		{
			name: "mfa skew too wide",
			mutate: func(c *Config) {
				c.MFA.Skew = 4
			},
			wantValid: false,
		},
		{
			name: "backup code digits too short",
			mutate: func(c *Config) {
				c.MFA.BackupCodeDigits = 4
			},
			wantValid: false,
		},
		{
			name: "session token hs256 valid",
			mutate: func(c *Config) {
				c.SessionToken.Enabled = true
				c.SessionToken.SigningMethod = "hs256"
				c.SessionToken.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
			},
			wantValid: true,
		},
		{
			name: "session token rs256 invalid",
			mutate: func(c *Config) {
				c.SessionToken.Enabled = true
				c.SessionToken.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "session token ed25519 without keys",
			mutate: func(c *Config) {
				c.SessionToken.Enabled = true
				c.SessionToken.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name: "disabled session token ignores signing method",
			mutate: func(c *Config) {
				c.SessionToken.SigningMethod = "rs256"
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := TestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestConfigValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"argon2 memory", func(c *Config) { c.Password.Memory = 1024 }},
		{"argon2 time", func(c *Config) { c.Password.Time = 0 }},
		{"argon2 salt", func(c *Config) { c.Password.SaltLength = 8 }},
		{"min length", func(c *Config) { c.Password.MinLength = 0 }},
		{"negative locked delay", func(c *Config) { c.Login.LockedDelay = -time.Second }},
		{"inverted verify delays", func(c *Config) {
			c.Login.MinVerifyDelay = time.Second
			c.Login.MaxVerifyDelay = 500 * time.Millisecond
		}},
		{"login attempts", func(c *Config) { c.Lockout.LoginMaxAttempts = 0 }},
		{"login lock", func(c *Config) { c.Lockout.LoginLockDuration = 0 }},
		{"reset attempts", func(c *Config) { c.Lockout.ResetMaxAttempts = -1 }},
		{"reset ttl", func(c *Config) { c.PasswordReset.TokenTTL = 0 }},
		{"reset token bytes", func(c *Config) { c.PasswordReset.TokenBytes = 8 }},
		{"session max age", func(c *Config) { c.Session.MaxAge = 0 }},
		{"session cap", func(c *Config) { c.Session.MaxSessionsPerUser = -1 }},
		{"audit buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := TestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigMatchesProductDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}

	if cfg.Lockout.LoginMaxAttempts != 5 || cfg.Lockout.LoginResetAfter != 15*time.Minute || cfg.Lockout.LoginLockDuration != 30*time.Minute {
		t.Fatalf("unexpected login lockout %+v", cfg.Lockout)
	}
	if cfg.Lockout.ResetMaxAttempts != 3 || cfg.Lockout.ResetResetAfter != time.Hour || cfg.Lockout.ResetLockDuration != time.Hour {
		t.Fatalf("unexpected reset lockout %+v", cfg.Lockout)
	}
	if cfg.PasswordReset.TokenTTL != 15*time.Minute || cfg.PasswordReset.TokenBytes != 16 {
		t.Fatalf("unexpected reset token settings %+v", cfg.PasswordReset)
	}
	if cfg.Session.MaxAge != 90*24*time.Hour {
		t.Fatalf("unexpected session max age %v", cfg.Session.MaxAge)
	}
	if cfg.MFA.Digits != 6 || cfg.MFA.Period != 30 || cfg.MFA.Skew != 1 || cfg.MFA.BackupCodeCount != 10 || cfg.MFA.BackupCodeDigits != 8 {
		t.Fatalf("unexpected mfa settings %+v", cfg.MFA)
	}
	if cfg.Login.LockedDelay != time.Second || cfg.Login.MinVerifyDelay != 500*time.Millisecond || cfg.Login.MaxVerifyDelay != time.Second {
		t.Fatalf("unexpected login delays %+v", cfg.Login)
	}
	if cfg.Account.CaseInsensitiveEmail {
		t.Fatal("emails must match exactly by default")
	}
}

func TestBuildRequiresStore(t *testing.T) {
	if _, err := New().WithConfig(TestConfig()).Build(); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	env := newTestEnv(t, nil)
	b := New().WithConfig(TestConfig()).WithStore(env.store)
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}
