package flows

import (
	"context"
	"fmt"
)

// RegisterRequest is the flow-local registration input.
type RegisterRequest struct {
	Email    string
	Password string
	Username string
}

// RegisterResult is the flow-local registration response.
type RegisterResult struct {
	UserID   string
	Email    string
	Username string
}

// RegisterMetrics carries metric IDs used by the register flow.
type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterRejected  int
	RegisterDuplicate int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess   string
	RegisterFailure   string
	RegisterDuplicate string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady     error
	EmailExists        error
	RegistrationFailed error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	// Validators return a user-facing error or nil.
	ValidateEmail    func(string) error
	ValidateUsername func(string) error
	ValidatePassword func(string) error

	EmailExists      func(context.Context, string) (bool, error)
	HashPassword     func(string) (string, error)
	CreateCredential func(context.Context, string, string, string) (string, error)
	IsDuplicate      func(error) bool
	MapError         func(error) error
	EmailDigest      func(string) string

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

func normalizeRegisterDeps(deps *RegisterDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.MapError == nil {
		deps.MapError = identityError
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(error) bool { return false }
	}
	if deps.EmailDigest == nil {
		deps.EmailDigest = func(string) string { return "" }
	}
}

// RunRegister validates the request and persists a new credential. It never
// creates a session.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (*RegisterResult, error) {
	normalizeRegisterDeps(&deps)

	if deps.ValidateEmail == nil ||
		deps.ValidateUsername == nil ||
		deps.ValidatePassword == nil ||
		deps.EmailExists == nil ||
		deps.HashPassword == nil ||
		deps.CreateCredential == nil {
		return nil, deps.Errors.EngineNotReady
	}

	meta := func(reason string) func() map[string]string {
		return func() map[string]string {
			m := map[string]string{"email": deps.EmailDigest(req.Email)}
			if reason != "" {
				m["reason"] = reason
			}
			return m
		}
	}

	reject := func(reason string, err error) (*RegisterResult, error) {
		deps.MetricInc(deps.Metrics.RegisterRejected)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", "", err, meta(reason))
		return nil, err
	}

	if err := deps.ValidateEmail(req.Email); err != nil {
		return reject("invalid_email", err)
	}
	if err := deps.ValidateUsername(req.Username); err != nil {
		return reject("invalid_username", err)
	}
	if err := deps.ValidatePassword(req.Password); err != nil {
		return reject("weak_password", err)
	}

	exists, err := deps.EmailExists(ctx, req.Email)
	if err != nil {
		return reject("lookup_failed", fmt.Errorf("%w: %w", deps.Errors.RegistrationFailed, deps.MapError(err)))
	}
	if exists {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", "", deps.Errors.EmailExists, meta("duplicate"))
		return nil, deps.Errors.EmailExists
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return reject("hash_failed", fmt.Errorf("%w: %w", deps.Errors.RegistrationFailed, deps.MapError(err)))
	}

	userID, err := deps.CreateCredential(ctx, req.Email, hash, req.Username)
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", "", deps.Errors.EmailExists, meta("duplicate"))
			return nil, deps.Errors.EmailExists
		}
		return reject("store_failed", fmt.Errorf("%w: %w", deps.Errors.RegistrationFailed, deps.MapError(err)))
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, userID, "", nil, meta(""))

	return &RegisterResult{
		UserID:   userID,
		Email:    req.Email,
		Username: req.Username,
	}, nil
}
