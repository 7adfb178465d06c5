package authcore

import (
	"context"
	"errors"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/flows"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/stores"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/moderation"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/password"
)

// Register creates an account for email with the given password and
// username.
//
// The email must be syntactically valid, the username must pass the
// moderator, and the password must satisfy the strength policy. Register
// returns ErrInvalidEmail, ErrInvalidUsername, a *PasswordPolicyError
// (matching ErrWeakPassword) or ErrEmailExists for user errors, and
// ErrRegistrationFailed wrapping ErrStorageUnavailable or
// ErrCryptoUnavailable when the account could not be persisted.
//
// Register does not create a session.
func (e *Engine) Register(ctx context.Context, email, pw, username string) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := e.flow.Register(ctx, flows.RegisterRequest{
		Email:    e.normalizeEmail(email),
		Password: pw,
		Username: username,
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("user_id", res.UserID).Msg("account registered")
	return &RegisterResult{
		UserID:   res.UserID,
		Email:    res.Email,
		Username: res.Username,
	}, nil
}

// DeleteAccount removes the credential of email and everything keyed to
// it: MFA enrollment, sessions, pending reset token and attempt counters.
// Deleting an unknown email is not an error.
func (e *Engine) DeleteAccount(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	email = e.normalizeEmail(email)

	cred, err := e.credentials.FindByEmail(ctx, email)
	if err != nil {
		return mapInternalError(err)
	}
	if cred == nil {
		return nil
	}

	if err := e.mfa.Disable(ctx, cred.UserID); err != nil {
		return mapInternalError(err)
	}
	if err := e.sessions.RevokeAllSessions(ctx, cred.UserID); err != nil {
		return mapInternalError(err)
	}
	if err := e.resetTokens.Delete(ctx, email); err != nil {
		return mapInternalError(err)
	}
	if err := e.loginLimiter.Clear(ctx, email); err != nil {
		return mapInternalError(err)
	}
	if err := e.resetLimiter.Clear(ctx, email); err != nil {
		return mapInternalError(err)
	}
	if err := e.credentials.Delete(ctx, email); err != nil && !errors.Is(err, stores.ErrCredentialNotFound) {
		return mapInternalError(err)
	}

	e.emitAudit(ctx, auditEventAccountDeleted, true, cred.UserID, "", nil, func() map[string]string {
		return map[string]string{"email": internal.IdentifierDigest(email)}
	})
	return nil
}

// CheckPasswordStrength returns the policy violations of pw without
// registering anything. An empty slice means the password is acceptable.
func (e *Engine) CheckPasswordStrength(pw string) []password.Violation {
	if e == nil {
		return nil
	}
	return e.policy.Validate(pw)
}

func (e *Engine) validateEmail(email string) error {
	if err := e.validate.Var(email, "required,email,max=254"); err != nil {
		return &FieldError{Kind: ErrInvalidEmail, Reason: "Please enter a valid email address"}
	}
	return nil
}

func (e *Engine) validateUsername(username string) error {
	res := e.moderator.ValidateName(username, moderation.KindUsername)
	if !res.IsValid {
		return &FieldError{Kind: ErrInvalidUsername, Reason: res.Error}
	}
	return nil
}

func (e *Engine) validatePassword(pw string) error {
	if max := e.config.Password.MaxPasswordBytes; max > 0 && len(pw) > max {
		return &FieldError{Kind: ErrWeakPassword, Reason: "Password is too long"}
	}
	if violations := e.policy.Validate(pw); len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}
	return nil
}
