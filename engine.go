package authcore

import (
	"context"
	"errors"
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
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/notify"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/password"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/session"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
	"github.com/rs/zerolog"
)

// Engine is the authentication core: registration, login with lockout and
// MFA, password reset and session tracking over an encrypted store.
//
// Build it with New().WithStore(...).Build(). All methods are safe for
// concurrent use.
type Engine struct {
	config Config
	log    zerolog.Logger

	store     Store
	vault     *vault.Vault
	hasher    *password.Argon2
	dummyHash string
	policy    password.Policy
	validate  *validator.Validate
	moderator Moderator
	notifier  Notifier

	credentials  *stores.CredentialStore
	resetTokens  *stores.ResetTokenStore
	loginLimiter *limiters.AttemptLimiter
	resetLimiter *limiters.AttemptLimiter
	mfa          *mfa.Manager
	sessions     *session.Manager
	tokens       *jwt.Manager

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	flow    flows.Service

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Close drains pending audit events. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// Metrics returns the engine counters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot is read by the metrics exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped is the number of audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// normalizeEmail trims whitespace and, when emails are case-insensitive,
// lowercases so limiter and token keys agree with the credential match.
func (e *Engine) normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if e.config.Account.CaseInsensitiveEmail {
		email = strings.ToLower(email)
	}
	return email
}

func (e *Engine) warn(msg string, kv ...any) {
	e.log.Warn().Fields(kv).Msg(msg)
}

func toLockStatus(d limiters.Decision) flows.LockStatus {
	return flows.LockStatus{Locked: !d.Allowed, RetryAfter: d.RetryAfter}
}

func credentialRecord(c *stores.Credential) *flows.CredentialRecord {
	if c == nil {
		return nil
	}
	return &flows.CredentialRecord{
		UserID:       c.UserID,
		Email:        c.Email,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
	}
}

func (e *Engine) flowDeps() flows.Deps {
	emitAudit := func(ctx context.Context, event string, success bool, userID, sessionID string, err error, meta func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, sessionID, err, meta)
	}
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	findCredential := func(ctx context.Context, email string) (*flows.CredentialRecord, error) {
		c, err := e.credentials.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return credentialRecord(c), nil
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			ValidateEmail:    e.validateEmail,
			ValidateUsername: e.validateUsername,
			ValidatePassword: e.validatePassword,
			EmailExists:      e.credentials.Exists,
			HashPassword:     e.hasher.Hash,
			CreateCredential: e.credentials.Register,
			IsDuplicate: func(err error) bool {
				return errors.Is(err, stores.ErrEmailExists)
			},
			MapError:    mapInternalError,
			EmailDigest: internal.IdentifierDigest,
			MetricInc:   metricInc,
			EmitAudit:   emitAudit,
			Metrics: flows.RegisterMetrics{
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterRejected:  int(MetricRegisterRejected),
				RegisterDuplicate: int(MetricRegisterDuplicate),
			},
			Events: flows.RegisterEvents{
				RegisterSuccess:   auditEventRegisterSuccess,
				RegisterFailure:   auditEventRegisterFailure,
				RegisterDuplicate: auditEventRegisterDuplicate,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:     ErrEngineNotReady,
				EmailExists:        ErrEmailExists,
				RegistrationFailed: ErrRegistrationFailed,
			},
		},
		Login: flows.LoginDeps{
			LockedDelay: e.config.Login.LockedDelay,
			MinDelay:    e.config.Login.MinVerifyDelay,
			MaxDelay:    e.config.Login.MaxVerifyDelay,
			DummyHash:   e.dummyHash,
			LimiterStatus: func(ctx context.Context, email string) (flows.LockStatus, error) {
				d, err := e.loginLimiter.Status(ctx, email)
				return toLockStatus(d), err
			},
			RecordFailure: func(ctx context.Context, email string) error {
				_, err := e.loginLimiter.CheckAndRecordFailure(ctx, email)
				return err
			},
			ClearFailures: e.loginLimiter.Clear,
			NewLockedError: func(retryAfter time.Duration) error {
				return &LockedError{RetryAfter: retryAfter}
			},
			FindCredential: findCredential,
			CheckPassword: func(pw, stored string) (flows.PasswordCheck, error) {
				res, err := e.hasher.Check(pw, stored)
				return flows.PasswordCheck{
					Match:  res.Match,
					Rehash: res.Rehash && e.config.Password.UpgradeOnLogin,
					Format: res.Format.String(),
				}, err
			},
			HashPassword:       e.hasher.Hash,
			UpdatePasswordHash: e.credentials.UpdatePasswordHash,
			MFAEnabled:         e.mfa.IsEnabled,
			VerifyMFA:          e.verifyMFAForLogin,
			CreateSession: func(ctx context.Context, userID string) (string, error) {
				s, err := e.sessions.CreateSession(ctx, userID)
				if err != nil {
					return "", err
				}
				e.metricInc(MetricSessionCreated)
				return s.SessionID, nil
			},
			RandomDelay: internal.RandomDuration,
			Sleep:       e.sleep,
			MapError:    mapInternalError,
			EmailDigest: internal.IdentifierDigest,
			MetricInc:   metricInc,
			EmitAudit:   emitAudit,
			Warn:        e.warn,
			Metrics: flows.LoginMetrics{
				LoginSuccess:         int(MetricLoginSuccess),
				LoginFailure:         int(MetricLoginFailure),
				LoginLocked:          int(MetricLoginLocked),
				MFARequired:          int(MetricMFARequired),
				MFASuccess:           int(MetricMFASuccess),
				MFAFailure:           int(MetricMFAFailure),
				BackupCodeUsed:       int(MetricBackupCodeUsed),
				PasswordHashMigrated: int(MetricPasswordHashMigrated),
			},
			Events: flows.LoginEvents{
				LoginSuccess:         auditEventLoginSuccess,
				LoginFailure:         auditEventLoginFailure,
				LoginLocked:          auditEventLoginLocked,
				MFARequired:          auditEventMFARequired,
				MFASuccess:           auditEventMFASuccess,
				MFAFailure:           auditEventMFAFailure,
				PasswordHashMigrated: auditEventPasswordHashMigrated,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				InvalidMFACode:     ErrInvalidMFACode,
			},
		},
		PasswordReset: flows.PasswordResetDeps{
			TokenTTL:       e.config.PasswordReset.TokenTTL,
			RevokeSessions: e.config.PasswordReset.RevokeSessions,
			LimiterStatus: func(ctx context.Context, email string) (flows.LockStatus, error) {
				d, err := e.resetLimiter.Status(ctx, email)
				return toLockStatus(d), err
			},
			RecordAttempt: func(ctx context.Context, email string) error {
				_, err := e.resetLimiter.CheckAndRecordFailure(ctx, email)
				return err
			},
			ClearResetAttempts: e.resetLimiter.Clear,
			ClearLoginAttempts: e.loginLimiter.Clear,
			FindCredential:     findCredential,
			NewToken: func() (string, error) {
				return internal.RandomHex(e.config.PasswordReset.TokenBytes)
			},
			SaveToken: e.resetTokens.Save,
			VerifyToken: func(ctx context.Context, email, token string) (string, error) {
				rec, err := e.resetTokens.Verify(ctx, email, token)
				if err != nil {
					return "", err
				}
				return rec.UserID, nil
			},
			ConsumeToken: func(ctx context.Context, email, token string) (string, error) {
				rec, err := e.resetTokens.Consume(ctx, email, token)
				if err != nil {
					return "", err
				}
				return rec.UserID, nil
			},
			TokenFailure: resetTokenFailure,
			Deliver: func(ctx context.Context, email, username, token string, expiresAt time.Time) error {
				return e.notifier.SendPasswordReset(ctx, notify.Message{
					Email:     email,
					Username:  username,
					Token:     token,
					ExpiresAt: expiresAt,
				})
			},
			ValidatePassword:   e.validatePassword,
			HashPassword:       e.hasher.Hash,
			UpdatePasswordHash: e.credentials.UpdatePasswordHash,
			RevokeAllSessions:  e.sessions.RevokeAllSessions,
			Now:                e.now,
			MapError:           mapInternalError,
			EmailDigest:        internal.IdentifierDigest,
			MetricInc:          metricInc,
			EmitAudit:          emitAudit,
			Warn:               e.warn,
			Metrics: flows.PasswordResetMetrics{
				PasswordResetRequest: int(MetricPasswordResetRequest),
				PasswordResetLocked:  int(MetricPasswordResetLocked),
				PasswordResetSuccess: int(MetricPasswordResetSuccess),
				PasswordResetFailure: int(MetricPasswordResetFailure),
				SessionRevoked:       int(MetricSessionRevoked),
			},
			Events: flows.PasswordResetEvents{
				PasswordResetRequest: auditEventPasswordResetRequest,
				PasswordResetLocked:  auditEventPasswordResetLocked,
				PasswordResetVerify:  auditEventPasswordResetVerify,
				PasswordResetConfirm: auditEventPasswordResetConfirm,
			},
			Errors: flows.PasswordResetErrors{
				EngineNotReady:        ErrEngineNotReady,
				InvalidOrExpiredToken: ErrInvalidOrExpiredToken,
			},
		},
	}
}

func resetTokenFailure(err error) string {
	switch {
	case errors.Is(err, stores.ErrResetNotFound):
		return "not_found"
	case errors.Is(err, stores.ErrResetExpired):
		return "expired"
	case errors.Is(err, stores.ErrResetSecretMismatch):
		return "mismatch"
	default:
		return ""
	}
}
