package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/password"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
)

var (
	// ErrWeakPassword is returned when a password fails the strength policy.
	// The concrete error is a *PasswordPolicyError.
	ErrWeakPassword = errors.New("weak password")
	// ErrEmailExists is returned by Register for an already registered email.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is matched by *LockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidOrExpiredToken covers missing, expired and mismatched reset tokens.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	// ErrMFARequired is a continuation signal. Login reports it through
	// LoginResult.RequiresMFA, never as an error.
	ErrMFARequired = errors.New("mfa code required")
	ErrInvalidMFACode = errors.New("invalid mfa code")
	// ErrMFANotEnabled is returned by MFA management calls for users without
	// an enrollment.
	ErrMFANotEnabled = errors.New("mfa not enabled")

	// ErrDecryption is returned when stored data fails authentication.
	ErrDecryption = vault.ErrDecryption
	// ErrCryptoUnavailable is fatal: the secure random source failed.
	ErrCryptoUnavailable = internal.ErrCryptoUnavailable
	// ErrStorageUnavailable is fatal: the storage backend failed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrRegistrationFailed = errors.New("registration failed")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidUsername    = errors.New("invalid username")

	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionTokenDisabled = errors.New("session tokens disabled")
	ErrSessionTokenInvalid  = errors.New("session token invalid")

	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockedError reports a locked account and how long the lock has left.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return "account locked: " + e.Message()
}

// Message is the user-facing description, e.g. "Too many failed attempts.
// Try again in 30 minutes."
func (e *LockedError) Message() string {
	return "Too many failed attempts. Try again in " + humanDuration(e.RetryAfter) + "."
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// PasswordPolicyError lists every strength rule a password broke.
type PasswordPolicyError struct {
	Violations []password.Violation
}

func (e *PasswordPolicyError) Error() string {
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = string(v)
	}
	return "weak password: " + strings.Join(names, ", ")
}

// Messages returns the user-facing text for each violation.
func (e *PasswordPolicyError) Messages() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Message()
	}
	return out
}

func (e *PasswordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

// FieldError is a validation failure carrying user-facing text.
type FieldError struct {
	Kind   error
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *FieldError) Unwrap() error { return e.Kind }

// UserMessage maps an error returned by the Engine to short, non-technical
// text suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var locked *LockedError
	if errors.As(err, &locked) {
		return locked.Message()
	}
	var policy *PasswordPolicyError
	if errors.As(err, &policy) && len(policy.Violations) > 0 {
		return policy.Violations[0].Message()
	}
	var field *FieldError
	if errors.As(err, &field) && field.Reason != "" {
		return field.Reason
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrAccountLocked):
		return "Too many failed attempts. Please try again later."
	case errors.Is(err, ErrWeakPassword):
		return "Password does not meet the requirements"
	case errors.Is(err, ErrEmailExists):
		return "An account with this email already exists"
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address"
	case errors.Is(err, ErrInvalidUsername):
		return "Please choose a different username"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "This reset code is invalid or has expired"
	case errors.Is(err, ErrMFARequired):
		return "Enter your verification code"
	case errors.Is(err, ErrInvalidMFACode):
		return "Invalid verification code"
	case errors.Is(err, ErrMFANotEnabled):
		return "Two-factor authentication is not enabled"
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionTokenInvalid):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrDecryption):
		return "Stored data could not be read. Please sign in again."
	case errors.Is(err, ErrCryptoUnavailable):
		return "Secure storage is not available on this device"
	case errors.Is(err, ErrStorageUnavailable):
		return "Storage is temporarily unavailable. Please try again."
	case errors.Is(err, ErrRegistrationFailed):
		return "Registration failed. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// mapInternalError folds subpackage failures into the fatal taxonomy.
// Errors already in the taxonomy pass through.
func mapInternalError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrCryptoUnavailable),
		errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrDecryption),
		errors.Is(err, ErrEngineNotReady),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		// kv.ErrUnavailable, vault.ErrConflict and anything unexpected.
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}

func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "a moment"
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	switch {
	case minutes <= 1:
		return "1 minute"
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := (minutes + 59) / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
