package authcore

import (
	"context"
	"errors"
	"fmt"
)

// IssueSessionToken signs a short-lived assertion that userID holds
// sessionID on this device. The session must currently be valid.
// It returns ErrSessionTokenDisabled unless SessionToken.Enabled is set.
func (e *Engine) IssueSessionToken(ctx context.Context, userID, sessionID string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if e.tokens == nil {
		return "", ErrSessionTokenDisabled
	}

	s, err := e.sessions.FindSession(ctx, userID, sessionID)
	if err != nil {
		return "", mapInternalError(err)
	}
	if s == nil {
		return "", ErrSessionNotFound
	}

	token, err := e.tokens.Issue(userID, sessionID, s.DeviceID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	e.metricInc(MetricSessionTokenIssued)
	return token, nil
}

// VerifySessionToken checks the signature and claims of token and then that
// the session it names is still valid. A revoked or expired session makes
// an otherwise well-formed token invalid.
func (e *Engine) VerifySessionToken(ctx context.Context, token string) (*SessionClaims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.tokens == nil {
		return nil, ErrSessionTokenDisabled
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		e.metricInc(MetricSessionTokenRejected)
		return nil, fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}

	valid, err := e.IsSessionValid(ctx, claims.UID, claims.SID)
	if err != nil {
		return nil, err
	}
	if !valid {
		e.metricInc(MetricSessionTokenRejected)
		return nil, errors.Join(ErrSessionTokenInvalid, ErrSessionNotFound)
	}

	out := &SessionClaims{
		UserID:    claims.UID,
		SessionID: claims.SID,
		DeviceID:  claims.DID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
