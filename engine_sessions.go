package authcore

import (
	"context"
	"strconv"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/session"
)

// InitializeDeviceID returns the install's device id, generating and
// persisting one on first call.
func (e *Engine) InitializeDeviceID(ctx context.Context) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	id, err := e.sessions.InitializeDeviceID(ctx)
	if err != nil {
		return "", mapInternalError(err)
	}
	return id, nil
}

// CurrentSessionID returns "" when nobody is signed in on this install.
func (e *Engine) CurrentSessionID(ctx context.Context) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	id, err := e.sessions.CurrentSessionID(ctx)
	if err != nil {
		return "", mapInternalError(err)
	}
	return id, nil
}

func (e *Engine) UpdateLastActive(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapInternalError(e.sessions.UpdateLastActive(ctx, userID))
}

// RevokeSession removes one session of userID. It returns ErrSessionNotFound
// when the session does not exist.
func (e *Engine) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	removed, err := e.sessions.RevokeSession(ctx, userID, sessionID)
	if err != nil {
		return mapInternalError(err)
	}
	if !removed {
		e.emitAudit(ctx, auditEventSessionRevoked, false, userID, sessionID, ErrSessionNotFound, nil)
		return ErrSessionNotFound
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, userID, sessionID, nil, nil)
	return nil
}

// RevokeAllOtherSessions keeps only the current session of this install and
// returns the number removed.
func (e *Engine) RevokeAllOtherSessions(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	n, err := e.sessions.RevokeAllOtherSessions(ctx, userID)
	if err != nil {
		return 0, mapInternalError(err)
	}
	e.metrics.Add(MetricSessionRevoked, uint64(n))
	e.emitAudit(ctx, auditEventSessionsRevokedOther, true, userID, "", nil, func() map[string]string {
		return map[string]string{"count": strconv.Itoa(n)}
	})
	return n, nil
}

// RevokeAllSessions signs userID out of every device.
func (e *Engine) RevokeAllSessions(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.sessions.RevokeAllSessions(ctx, userID); err != nil {
		return mapInternalError(err)
	}
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionsRevokedAll, true, userID, "", nil, nil)
	return nil
}

// IsSessionValid reports whether sessionID exists for userID and is younger
// than Session.MaxAge. Expired sessions are removed when found.
func (e *Engine) IsSessionValid(ctx context.Context, userID, sessionID string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}

	status, err := e.sessions.Check(ctx, userID, sessionID)
	if err != nil {
		return false, mapInternalError(err)
	}
	if status == session.StatusExpired {
		e.metricInc(MetricSessionExpired)
		e.emitAudit(ctx, auditEventSessionExpired, false, userID, sessionID, nil, nil)
	}
	return status == session.StatusValid, nil
}

// ListSessions returns the unexpired sessions of userID, oldest first.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	list, err := e.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, mapInternalError(err)
	}
	return list, nil
}
