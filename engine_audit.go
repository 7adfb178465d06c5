package authcore

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventRegisterDuplicate    = "register_duplicate"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginLocked          = "login_locked"
	auditEventPasswordHashMigrated = "password_hash_migrated"
	auditEventMFARequired          = "mfa_required"
	auditEventMFASuccess           = "mfa_success"
	auditEventMFAFailure           = "mfa_failure"
	auditEventMFAEnabled           = "mfa_enabled"
	auditEventMFADisabled          = "mfa_disabled"
	auditEventBackupCodesGenerated = "backup_codes_generated"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetLocked  = "password_reset_locked"
	auditEventPasswordResetVerify  = "password_reset_verify"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventSessionRevoked       = "session_revoked"
	auditEventSessionsRevokedOther = "sessions_revoked_other"
	auditEventSessionsRevokedAll   = "sessions_revoked_all"
	auditEventSessionExpired       = "session_expired"
	auditEventAccountDeleted       = "account_deleted"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrWeakPassword       AuditErrorCode = "weak_password"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrInvalidUsername    AuditErrorCode = "invalid_username"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrMFAInvalid         AuditErrorCode = "mfa_invalid"
	auditErrMFANotEnabled      AuditErrorCode = "mfa_not_enabled"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrDecryption         AuditErrorCode = "decryption"
	auditErrCrypto             AuditErrorCode = "crypto_unavailable"
	auditErrUnavailable        AuditErrorCode = "storage_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrWeakPassword):
		return auditErrWeakPassword
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrInvalidUsername):
		return auditErrInvalidUsername
	case errors.Is(err, ErrEmailExists):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidMFACode):
		return auditErrMFAInvalid
	case errors.Is(err, ErrMFANotEnabled):
		return auditErrMFANotEnabled
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrDecryption):
		return auditErrDecryption
	case errors.Is(err, ErrCryptoUnavailable):
		return auditErrCrypto
	case errors.Is(err, ErrStorageUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
