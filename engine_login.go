package authcore

import (
	"context"
	"errors"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/flows"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/mfa"
)

// Login authenticates email and password, with mfaCode as the second factor
// when MFA is enabled.
//
// It checks the attempt limiter before touching the password: a locked
// email waits LockedDelay and returns a *LockedError. Unknown emails are
// verified against a dummy hash and take the same time as a wrong password,
// both returning ErrInvalidCredentials.
//
// When MFA is enabled and mfaCode is empty the result has RequiresMFA set
// and no session is created. A wrong code returns ErrInvalidMFACode and
// counts as a failed attempt.
func (e *Engine) Login(ctx context.Context, email, pw, mfaCode string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	res, err := e.flow.Login(ctx, flows.LoginRequest{
		Email:    e.normalizeEmail(email),
		Password: pw,
		MFACode:  mfaCode,
	})
	e.metrics.Observe(MetricLoginLatency, e.now().Sub(start))
	if err != nil {
		return nil, err
	}

	out := &LoginResult{
		UserID:      res.UserID,
		Username:    res.Username,
		SessionID:   res.SessionID,
		RequiresMFA: res.RequiresMFA,
		MFAMethod:   res.MFAMethod,
	}
	if res.SessionID != "" {
		s, err := e.sessions.FindSession(ctx, res.UserID, res.SessionID)
		if err != nil {
			e.warn("session lookup after login failed", "user_id", res.UserID, "error", err.Error())
		}
		out.Session = s
	}
	return out, nil
}

// verifyMFAForLogin returns the method that matched, or "" for a wrong code.
// A user without an enrollment never reaches here with a code unless the
// enrollment was removed concurrently; that is a mismatch.
func (e *Engine) verifyMFAForLogin(ctx context.Context, userID, code string) (string, error) {
	method, err := e.mfa.Verify(ctx, userID, code)
	if errors.Is(err, mfa.ErrNotEnabled) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if method == mfa.MethodNone {
		return "", nil
	}
	return method.String(), nil
}
