package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	internalaudit "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/audit"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/flows"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/limiters"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/stores"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/jwt"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/mfa"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/moderation"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/notify"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/password"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/session"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. Every collaborator is injected here; the
// Engine holds no package-level state.
//
// A Builder can be used once.
type Builder struct {
	config Config
	store  Store
	log    zerolog.Logger

	moderator Moderator
	device    DeviceInfo
	notifier  Notifier
	auditSink AuditSink

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		log:    zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the key-value backend. It is required.
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.log = logger
	return b
}

// WithModerator replaces moderation.NewDefault().
func (b *Builder) WithModerator(m Moderator) *Builder {
	b.moderator = m
	return b
}

// WithDevice replaces session.HostDevice{}.
func (b *Builder) WithDevice(d DeviceInfo) *Builder {
	b.device = d
	return b
}

// WithNotifier sets the reset token delivery channel. Without one, tokens
// are discarded.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for every time-dependent component.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithSleeper overrides the login delays. Tests use it to observe delays
// without waiting.
func (b *Builder) WithSleeper(sleep func(context.Context, time.Duration) error) *Builder {
	b.sleep = sleep
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, opens the vault (creating the
// encryption key on first use) and wires every component.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("store is required")
	}

	cfg := cloneConfig(b.config)
	now := b.now
	if now == nil {
		now = time.Now
	}
	moderator := b.moderator
	if moderator == nil {
		moderator = moderation.NewDefault()
	}
	notifier := b.notifier
	if notifier == nil {
		b.log.Warn().Msg("no notifier configured, reset tokens will be discarded")
		notifier = notify.Discard
	}

	v, err := vault.Open(ctx, b.store, vault.Options{
		LegacyPlaintext: cfg.Storage.LegacyPlaintext,
		Logger:          b.log.With().Str("component", "vault").Logger(),
	})
	if err != nil {
		return nil, mapInternalError(err)
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}

	// Verified for unknown emails so that path costs one real Argon2 run.
	dummySecret, err := internal.RandomHex(16)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, err
	}

	denylist := cfg.Password.Denylist
	if len(denylist) == 0 {
		denylist = password.DefaultDenylist
	}
	policy := password.Policy{
		MinLength: cfg.Password.MinLength,
		Denylist:  denylist,
		Screen:    moderator.ContainsInappropriateContent,
	}

	loginLimits := limiters.LoginAttempts()
	loginLimits.MaxAttempts = cfg.Lockout.LoginMaxAttempts
	loginLimits.ResetAfter = cfg.Lockout.LoginResetAfter
	loginLimits.LockDuration = cfg.Lockout.LoginLockDuration
	loginLimits.Now = now
	loginLimiter, err := limiters.NewAttemptLimiter(v, loginLimits)
	if err != nil {
		return nil, err
	}

	resetLimits := limiters.ResetAttempts()
	resetLimits.MaxAttempts = cfg.Lockout.ResetMaxAttempts
	resetLimits.ResetAfter = cfg.Lockout.ResetResetAfter
	resetLimits.LockDuration = cfg.Lockout.ResetLockDuration
	resetLimits.Now = now
	resetLimiter, err := limiters.NewAttemptLimiter(v, resetLimits)
	if err != nil {
		return nil, err
	}

	mfaManager, err := mfa.NewManager(v, mfa.Config{
		TOTP: mfa.TOTPConfig{
			Issuer:    cfg.MFA.Issuer,
			Digits:    cfg.MFA.Digits,
			Period:    cfg.MFA.Period,
			Algorithm: strings.ToUpper(cfg.MFA.Algorithm),
			Skew:      cfg.MFA.Skew,
		},
		BackupCodeCount:         cfg.MFA.BackupCodeCount,
		BackupCodeDigits:        cfg.MFA.BackupCodeDigits,
		EnforceReplayProtection: cfg.MFA.EnforceReplayProtection,
		Now:                     now,
		Logger:                  b.log.With().Str("component", "mfa").Logger(),
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(v, session.Config{
		MaxAge:             cfg.Session.MaxAge,
		MaxSessionsPerUser: cfg.Session.MaxSessionsPerUser,
		Device:             b.device,
		Now:                now,
		Logger:             b.log.With().Str("component", "session").Logger(),
	})
	if err != nil {
		return nil, err
	}

	var tokens *jwt.Manager
	if cfg.SessionToken.Enabled {
		tokens, err = jwt.NewManager(jwt.Config{
			TTL:           cfg.SessionToken.TTL,
			SigningMethod: jwt.SigningMethod(cfg.SessionToken.SigningMethod),
			PrivateKey:    cfg.SessionToken.PrivateKey,
			PublicKey:     cfg.SessionToken.PublicKey,
			Issuer:        cfg.SessionToken.Issuer,
			Audience:      cfg.SessionToken.Audience,
			Leeway:        cfg.SessionToken.Leeway,
			KeyID:         cfg.SessionToken.KeyID,
			Now:           now,
		})
		if err != nil {
			return nil, fmt.Errorf("session token: %w", err)
		}
	}

	sleep := b.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	e := &Engine{
		config:       cfg,
		log:          b.log,
		store:        b.store,
		vault:        v,
		hasher:       hasher,
		dummyHash:    dummyHash,
		policy:       policy,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		moderator:    moderator,
		notifier:     notifier,
		credentials:  stores.NewCredentialStore(v, cfg.Account.CaseInsensitiveEmail, now),
		resetTokens:  stores.NewResetTokenStore(v, now),
		loginLimiter: loginLimiter,
		resetLimiter: resetLimiter,
		mfa:          mfaManager,
		sessions:     sessions,
		tokens:       tokens,
		metrics:      NewMetrics(cfg.Metrics),
		now:          now,
		sleep:        sleep,
	}
	e.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	e.flow = flows.New(e.flowDeps())

	b.built = true
	return e, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
