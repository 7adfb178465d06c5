package authcore

import (
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv"
)

// SecurityReport summarizes the effective security posture of an Engine.
type SecurityReport struct {
	ProductionMode bool
	Argon2         PasswordConfigReport
	MinPasswordLen int

	LoginMaxAttempts  int
	LoginLockDuration time.Duration
	ResetMaxAttempts  int
	ResetTokenTTL     time.Duration
	EqualizedLogin    bool

	MFAIssuer            string
	MFAAlgorithm         string
	BackupCodeCount      int
	TOTPReplayProtection bool

	SessionMaxAge       time.Duration
	SessionTokenEnabled bool
	SigningAlgorithm    string

	// StorageTrust is "unknown" unless the store reports its tier.
	StorageTrust          string
	LegacyPlaintextReads  bool
	RevokeSessionsOnReset bool
	AuditEnabled          bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	r := SecurityReport{
		ProductionMode: cfg.Security.ProductionMode,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		MinPasswordLen:        cfg.Password.MinLength,
		LoginMaxAttempts:      cfg.Lockout.LoginMaxAttempts,
		LoginLockDuration:     cfg.Lockout.LoginLockDuration,
		ResetMaxAttempts:      cfg.Lockout.ResetMaxAttempts,
		ResetTokenTTL:         cfg.PasswordReset.TokenTTL,
		EqualizedLogin:        cfg.Login.MinVerifyDelay > 0 && cfg.Login.LockedDelay > 0,
		MFAIssuer:             cfg.MFA.Issuer,
		MFAAlgorithm:          cfg.MFA.Algorithm,
		BackupCodeCount:       cfg.MFA.BackupCodeCount,
		TOTPReplayProtection:  cfg.MFA.EnforceReplayProtection,
		SessionMaxAge:         cfg.Session.MaxAge,
		SessionTokenEnabled:   cfg.SessionToken.Enabled,
		StorageTrust:          "unknown",
		LegacyPlaintextReads:  cfg.Storage.LegacyPlaintext,
		RevokeSessionsOnReset: cfg.PasswordReset.RevokeSessions,
		AuditEnabled:          cfg.Audit.Enabled,
	}
	if cfg.SessionToken.Enabled {
		r.SigningAlgorithm = cfg.SessionToken.SigningMethod
	}
	if t, ok := e.store.(interface{ Level() kv.TrustLevel }); ok {
		r.StorageTrust = t.Level().String()
	}
	return r
}
