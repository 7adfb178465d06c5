package flows

import (
	"context"
	"time"
)

// LoginRequest is the flow-local login input. MFACode is empty on the first
// attempt.
type LoginRequest struct {
	Email    string
	Password string
	MFACode  string
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID      string
	Username    string
	SessionID   string
	RequiresMFA bool
	MFAMethod   string
}

// PasswordCheck is the outcome of verifying a password against a stored hash.
type PasswordCheck struct {
	Match  bool
	Rehash bool
	Format string
}

// LockStatus is the flow-local view of a limiter decision.
type LockStatus struct {
	Locked     bool
	RetryAfter time.Duration
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess         int
	LoginFailure         int
	LoginLocked          int
	MFARequired          int
	MFASuccess           int
	MFAFailure           int
	BackupCodeUsed       int
	PasswordHashMigrated int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess         string
	LoginFailure         string
	LoginLocked          string
	MFARequired          string
	MFASuccess           string
	MFAFailure           string
	PasswordHashMigrated string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	InvalidMFACode     error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	// LockedDelay is slept before reporting a locked account.
	LockedDelay time.Duration
	// MinDelay and MaxDelay bound the random delay after every verification.
	MinDelay time.Duration
	MaxDelay time.Duration
	// DummyHash is verified when the email is unknown so both paths cost the
	// same.
	DummyHash string

	LimiterStatus  func(context.Context, string) (LockStatus, error)
	RecordFailure  func(context.Context, string) error
	ClearFailures  func(context.Context, string) error
	NewLockedError func(time.Duration) error

	FindCredential     func(context.Context, string) (*CredentialRecord, error)
	CheckPassword      func(password, stored string) (PasswordCheck, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error

	MFAEnabled func(context.Context, string) (bool, error)
	// VerifyMFA returns the matched method name, or "" on mismatch.
	VerifyMFA func(context.Context, string, string) (string, error)

	CreateSession func(context.Context, string) (string, error)

	RandomDelay func(min, max time.Duration) (time.Duration, error)
	Sleep       func(context.Context, time.Duration) error
	MapError    func(error) error
	EmailDigest func(string) string

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func normalizeLoginDeps(deps *LoginDeps) {
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
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}
	if deps.RandomDelay == nil {
		deps.RandomDelay = func(min, _ time.Duration) (time.Duration, error) { return min, nil }
	}
	if deps.EmailDigest == nil {
		deps.EmailDigest = func(string) string { return "" }
	}
}

// RunLogin executes the login state machine:
//
//	Start -> RateLimitCheck -> {Locked | CredentialLookup} -> PasswordVerify
//	      -> {Fail | MFACheck} -> {MFARequired | SessionCreate}
//
// Unknown emails and wrong passwords are indistinguishable to the caller in
// both result and timing.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	normalizeLoginDeps(&deps)

	if deps.LimiterStatus == nil ||
		deps.RecordFailure == nil ||
		deps.ClearFailures == nil ||
		deps.NewLockedError == nil ||
		deps.FindCredential == nil ||
		deps.CheckPassword == nil ||
		deps.MFAEnabled == nil ||
		deps.VerifyMFA == nil ||
		deps.CreateSession == nil ||
		deps.DummyHash == "" {
		return nil, deps.Errors.EngineNotReady
	}

	email := req.Email
	meta := func(extra map[string]string) func() map[string]string {
		return func() map[string]string {
			m := map[string]string{"email": deps.EmailDigest(email)}
			for k, v := range extra {
				m[k] = v
			}
			return m
		}
	}

	status, err := deps.LimiterStatus(ctx, email)
	if err != nil {
		return nil, deps.MapError(err)
	}
	if status.Locked {
		deps.MetricInc(deps.Metrics.LoginLocked)
		lockedErr := deps.NewLockedError(status.RetryAfter)
		deps.EmitAudit(ctx, deps.Events.LoginLocked, false, "", "", lockedErr, meta(map[string]string{
			"retry_after": status.RetryAfter.Round(time.Second).String(),
		}))
		if err := deps.Sleep(ctx, deps.LockedDelay); err != nil {
			return nil, err
		}
		return nil, lockedErr
	}

	cred, err := deps.FindCredential(ctx, email)
	if err != nil {
		return nil, deps.MapError(err)
	}

	var check PasswordCheck
	if cred == nil {
		_, _ = deps.CheckPassword(req.Password, deps.DummyHash)
	} else {
		check, err = deps.CheckPassword(req.Password, cred.PasswordHash)
		if err != nil {
			// Unreadable stored hash or oversized input: a plain mismatch
			// to the caller.
			deps.Warn("password check failed", "error", err.Error())
			check = PasswordCheck{}
		}
	}

	delay, err := deps.RandomDelay(deps.MinDelay, deps.MaxDelay)
	if err != nil {
		return nil, deps.MapError(err)
	}
	if err := deps.Sleep(ctx, delay); err != nil {
		return nil, err
	}

	if !check.Match {
		if err := deps.RecordFailure(ctx, email); err != nil {
			return nil, deps.MapError(err)
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials, meta(nil))
		return nil, deps.Errors.InvalidCredentials
	}

	// A correct password resets the counter, even when MFA is still pending.
	if err := deps.ClearFailures(ctx, email); err != nil {
		return nil, deps.MapError(err)
	}

	if check.Rehash && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		migrateHash(ctx, email, req.Password, cred, check, &deps)
	}

	enabled, err := deps.MFAEnabled(ctx, cred.UserID)
	if err != nil {
		return nil, deps.MapError(err)
	}

	method := ""
	if enabled {
		if req.MFACode == "" {
			deps.MetricInc(deps.Metrics.MFARequired)
			deps.EmitAudit(ctx, deps.Events.MFARequired, true, cred.UserID, "", nil, meta(nil))
			return &LoginResult{
				UserID:      cred.UserID,
				Username:    cred.Username,
				RequiresMFA: true,
			}, nil
		}

		method, err = deps.VerifyMFA(ctx, cred.UserID, req.MFACode)
		if err != nil {
			return nil, deps.MapError(err)
		}
		if method == "" {
			if err := deps.RecordFailure(ctx, email); err != nil {
				return nil, deps.MapError(err)
			}
			deps.MetricInc(deps.Metrics.MFAFailure)
			deps.EmitAudit(ctx, deps.Events.MFAFailure, false, cred.UserID, "", deps.Errors.InvalidMFACode, meta(nil))
			return nil, deps.Errors.InvalidMFACode
		}

		deps.MetricInc(deps.Metrics.MFASuccess)
		if method == "backup_code" {
			deps.MetricInc(deps.Metrics.BackupCodeUsed)
		}
		deps.EmitAudit(ctx, deps.Events.MFASuccess, true, cred.UserID, "", nil, meta(map[string]string{
			"method": method,
		}))
	}

	sessionID, err := deps.CreateSession(ctx, cred.UserID)
	if err != nil {
		return nil, deps.MapError(err)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, cred.UserID, sessionID, nil, meta(nil))

	return &LoginResult{
		UserID:    cred.UserID,
		Username:  cred.Username,
		SessionID: sessionID,
		MFAMethod: method,
	}, nil
}

// migrateHash replaces a legacy or under-cost hash. Failures are logged and
// never block the login.
func migrateHash(ctx context.Context, email, password string, cred *CredentialRecord, check PasswordCheck, deps *LoginDeps) {
	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("password rehash failed", "error", err.Error())
		return
	}
	if err := deps.UpdatePasswordHash(ctx, email, hash); err != nil {
		deps.Warn("password hash update failed", "error", err.Error())
		return
	}
	deps.MetricInc(deps.Metrics.PasswordHashMigrated)
	deps.EmitAudit(ctx, deps.Events.PasswordHashMigrated, true, cred.UserID, "", nil, func() map[string]string {
		return map[string]string{"from": check.Format}
	})
}
