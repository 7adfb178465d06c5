package authcore

import (
	"context"
)

// RequestPasswordReset starts a reset for email. It returns nil for
// registered and unknown emails alike, and while the email is locked out.
// Only a registered, unlocked email gets a token, which is handed to the
// Notifier. Storage failures are logged, not returned, so
// the result never reveals whether the account exists.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if _, err := e.flow.RequestPasswordReset(ctx, e.normalizeEmail(email)); err != nil {
		e.log.Error().Err(err).Msg("password reset request failed")
	}
	return nil
}

// VerifyResetToken checks token without consuming it. Missing, expired and
// mismatched tokens all return ErrInvalidOrExpiredToken; expired tokens are
// deleted when found.
func (e *Engine) VerifyResetToken(ctx context.Context, email, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.VerifyResetToken(ctx, e.normalizeEmail(email), token)
}

// ResetPassword replaces the password of email when token is valid and
// newPassword satisfies the policy. The token is single use. A weak password
// returns a *PasswordPolicyError and leaves the token usable.
func (e *Engine) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.ResetPassword(ctx, e.normalizeEmail(email), token, newPassword)
}
