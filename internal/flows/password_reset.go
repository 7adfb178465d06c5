package flows

import (
	"context"
	"time"
)

// PasswordResetMetrics carries metric IDs used by the password reset flows.
type PasswordResetMetrics struct {
	PasswordResetRequest int
	PasswordResetLocked  int
	PasswordResetSuccess int
	PasswordResetFailure int
	SessionRevoked       int
}

// PasswordResetEvents carries audit event names used by the password reset flows.
type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetLocked  string
	PasswordResetVerify  string
	PasswordResetConfirm string
}

// PasswordResetErrors carries host-level sentinel errors used by the password
// reset flows.
type PasswordResetErrors struct {
	EngineNotReady        error
	InvalidOrExpiredToken error
}

// PasswordResetDeps captures password reset dependencies.
type PasswordResetDeps struct {
	TokenTTL       time.Duration
	RevokeSessions bool

	LimiterStatus      func(context.Context, string) (LockStatus, error)
	RecordAttempt      func(context.Context, string) error
	ClearResetAttempts func(context.Context, string) error
	ClearLoginAttempts func(context.Context, string) error

	FindCredential func(context.Context, string) (*CredentialRecord, error)
	NewToken       func() (string, error)
	SaveToken      func(ctx context.Context, email, userID, token string, ttl time.Duration) error
	// VerifyToken and ConsumeToken return the owning user id.
	VerifyToken  func(ctx context.Context, email, token string) (string, error)
	ConsumeToken func(ctx context.Context, email, token string) (string, error)
	// TokenFailure classifies a token error as "not_found", "expired" or
	// "mismatch". It returns "" for errors that are not token failures.
	TokenFailure func(error) string
	Deliver      func(ctx context.Context, email, username, token string, expiresAt time.Time) error

	ValidatePassword   func(string) error
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error
	RevokeAllSessions  func(context.Context, string) error

	Now         func() time.Time
	MapError    func(error) error
	EmailDigest func(string) string

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.MapError == nil {
		deps.MapError = identityError
	}
	if deps.TokenFailure == nil {
		deps.TokenFailure = func(error) string { return "" }
	}
	if deps.EmailDigest == nil {
		deps.EmailDigest = func(string) string { return "" }
	}
}

func (deps *PasswordResetDeps) emailMeta(email string, extra map[string]string) func() map[string]string {
	return func() map[string]string {
		m := map[string]string{"email": deps.EmailDigest(email)}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
}

// RunRequestPasswordReset records a reset attempt and, when the limiter
// allows it and the email is registered, issues and delivers a token. It
// reports whether a token was issued. Callers must not reveal either result
// to the requester.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) (bool, error) {
	normalizePasswordResetDeps(&deps)

	if deps.LimiterStatus == nil ||
		deps.RecordAttempt == nil ||
		deps.FindCredential == nil ||
		deps.NewToken == nil ||
		deps.SaveToken == nil ||
		deps.Deliver == nil {
		return false, deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)

	status, err := deps.LimiterStatus(ctx, email)
	if err != nil {
		return false, deps.MapError(err)
	}
	if status.Locked {
		deps.MetricInc(deps.Metrics.PasswordResetLocked)
		deps.EmitAudit(ctx, deps.Events.PasswordResetLocked, false, "", "", nil, deps.emailMeta(email, map[string]string{
			"retry_after": status.RetryAfter.Round(time.Second).String(),
		}))
		return false, nil
	}
	if err := deps.RecordAttempt(ctx, email); err != nil {
		return false, deps.MapError(err)
	}

	cred, err := deps.FindCredential(ctx, email)
	if err != nil {
		return false, deps.MapError(err)
	}
	if cred == nil {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", "", nil, deps.emailMeta(email, map[string]string{
			"reason": "unknown_email",
		}))
		return false, nil
	}

	token, err := deps.NewToken()
	if err != nil {
		return false, deps.MapError(err)
	}
	if err := deps.SaveToken(ctx, email, cred.UserID, token, deps.TokenTTL); err != nil {
		return false, deps.MapError(err)
	}

	expiresAt := deps.Now().Add(deps.TokenTTL)
	if err := deps.Deliver(ctx, cred.Email, cred.Username, token, expiresAt); err != nil {
		// The token stays valid; the user can request another.
		deps.Warn("password reset delivery failed", "error", err.Error())
	}

	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, cred.UserID, "", nil, deps.emailMeta(email, nil))
	return true, nil
}

// RunVerifyResetToken checks token without consuming it. Missing, expired
// and mismatched tokens all yield InvalidOrExpiredToken; the audit reason is
// the only place they differ.
func RunVerifyResetToken(ctx context.Context, email, token string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.VerifyToken == nil {
		return deps.Errors.EngineNotReady
	}

	userID, err := deps.VerifyToken(ctx, email, token)
	if err != nil {
		return tokenFailure(ctx, email, deps.Events.PasswordResetVerify, err, &deps)
	}

	deps.EmitAudit(ctx, deps.Events.PasswordResetVerify, true, userID, "", nil, deps.emailMeta(email, nil))
	return nil
}

// RunResetPassword consumes token and replaces the password. On success both
// attempt counters are cleared and, when configured, every session of the
// user is revoked.
func RunResetPassword(ctx context.Context, email, token, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.VerifyToken == nil ||
		deps.ConsumeToken == nil ||
		deps.ValidatePassword == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	if _, err := deps.VerifyToken(ctx, email, token); err != nil {
		return tokenFailure(ctx, email, deps.Events.PasswordResetConfirm, err, &deps)
	}

	// A weak password leaves the token usable for a second try.
	if err := deps.ValidatePassword(newPassword); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, "", "", err, deps.emailMeta(email, map[string]string{
			"reason": "weak_password",
		}))
		return err
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return deps.MapError(err)
	}

	userID, err := deps.ConsumeToken(ctx, email, token)
	if err != nil {
		return tokenFailure(ctx, email, deps.Events.PasswordResetConfirm, err, &deps)
	}

	if err := deps.UpdatePasswordHash(ctx, email, hash); err != nil {
		return deps.MapError(err)
	}

	if deps.ClearLoginAttempts != nil {
		if err := deps.ClearLoginAttempts(ctx, email); err != nil {
			deps.Warn("clear login attempts failed", "error", err.Error())
		}
	}
	if deps.ClearResetAttempts != nil {
		if err := deps.ClearResetAttempts(ctx, email); err != nil {
			deps.Warn("clear reset attempts failed", "error", err.Error())
		}
	}

	if deps.RevokeSessions && deps.RevokeAllSessions != nil && userID != "" {
		if err := deps.RevokeAllSessions(ctx, userID); err != nil {
			deps.Warn("session revocation after reset failed", "error", err.Error())
		} else {
			deps.MetricInc(deps.Metrics.SessionRevoked)
		}
	}

	deps.MetricInc(deps.Metrics.PasswordResetSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, userID, "", nil, deps.emailMeta(email, nil))
	return nil
}

func tokenFailure(ctx context.Context, email, event string, err error, deps *PasswordResetDeps) error {
	reason := deps.TokenFailure(err)
	if reason == "" {
		return deps.MapError(err)
	}
	deps.MetricInc(deps.Metrics.PasswordResetFailure)
	deps.EmitAudit(ctx, event, false, "", "", deps.Errors.InvalidOrExpiredToken, deps.emailMeta(email, map[string]string{
		"reason": reason,
	}))
	return deps.Errors.InvalidOrExpiredToken
}
