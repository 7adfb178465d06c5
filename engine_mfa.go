package authcore

import (
	"context"
	"errors"
	"strconv"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/mfa"
)

// EnableMFA enrolls userID in TOTP, replacing any previous enrollment. The
// returned secret, otpauth URI and backup codes are shown once.
func (e *Engine) EnableMFA(ctx context.Context, userID, email string) (*MFAEnrollment, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrInvalidCredentials
	}

	enrollment, err := e.mfa.Enable(ctx, userID, e.normalizeEmail(email))
	if err != nil {
		err = mapInternalError(err)
		e.emitAudit(ctx, auditEventMFAEnabled, false, userID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricMFAEnabled)
	e.emitAudit(ctx, auditEventMFAEnabled, true, userID, "", nil, func() map[string]string {
		return map[string]string{"backup_codes": strconv.Itoa(len(enrollment.BackupCodes))}
	})
	return enrollment, nil
}

// DisableMFA removes the enrollment of userID. Disabling a user without one
// is not an error.
func (e *Engine) DisableMFA(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.mfa.Disable(ctx, userID); err != nil {
		err = mapInternalError(err)
		e.emitAudit(ctx, auditEventMFADisabled, false, userID, "", err, nil)
		return err
	}
	e.metricInc(MetricMFADisabled)
	e.emitAudit(ctx, auditEventMFADisabled, true, userID, "", nil, nil)
	return nil
}

func (e *Engine) IsMFAEnabled(ctx context.Context, userID string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	ok, err := e.mfa.IsEnabled(ctx, userID)
	if err != nil {
		return false, mapInternalError(err)
	}
	return ok, nil
}

// VerifyMFACode is a boolean gate: a wrong code, a missing enrollment and
// a storage failure all return false. A matched backup code is consumed.
func (e *Engine) VerifyMFACode(ctx context.Context, userID, code string) bool {
	if !e.ready() {
		return false
	}

	method, err := e.mfa.Verify(ctx, userID, code)
	if err != nil {
		if !errors.Is(err, mfa.ErrNotEnabled) {
			e.warn("mfa verification failed", "user_id", userID, "error", err.Error())
		}
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, userID, "", mapMFAError(err), nil)
		return false
	}
	if method == mfa.MethodNone {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, userID, "", ErrInvalidMFACode, nil)
		return false
	}

	e.metricInc(MetricMFASuccess)
	if method == mfa.MethodBackupCode {
		e.metricInc(MetricBackupCodeUsed)
	}
	e.emitAudit(ctx, auditEventMFASuccess, true, userID, "", nil, func() map[string]string {
		return map[string]string{"method": method.String()}
	})
	return true
}

// RemainingBackupCodes returns ErrMFANotEnabled for users without an
// enrollment.
func (e *Engine) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.mfa.RemainingBackupCodes(ctx, userID)
	if err != nil {
		return 0, mapMFAError(err)
	}
	return n, nil
}

// RegenerateBackupCodes invalidates every existing backup code of userID and
// returns the new set.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	codes, err := e.mfa.RegenerateBackupCodes(ctx, userID)
	if err != nil {
		err = mapMFAError(err)
		e.emitAudit(ctx, auditEventBackupCodesGenerated, false, userID, "", err, nil)
		return nil, err
	}
	e.metricInc(MetricBackupCodesRegenerated)
	e.emitAudit(ctx, auditEventBackupCodesGenerated, true, userID, "", nil, nil)
	return codes, nil
}

func mapMFAError(err error) error {
	if errors.Is(err, mfa.ErrNotEnabled) {
		return ErrMFANotEnabled
	}
	return mapInternalError(err)
}
