package authcore

import (
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/mfa"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/moderation"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/notify"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/session"
)

// Collaborators supplied by the host application.
type (
	// Store is the key-value backend under the encrypted vault.
	Store = kv.Store
	// Moderator screens usernames and passwords for inappropriate content.
	Moderator = moderation.Moderator
	// DeviceInfo describes the device sessions are created on.
	DeviceInfo = session.DeviceInfo
	// Notifier delivers password reset tokens.
	Notifier = notify.Notifier
)

// Session is one signed-in device of a user.
type Session = session.Session

// MFAEnrollment is returned once by EnableMFA. The backup codes are never
// shown again.
type MFAEnrollment = mfa.Enrollment

// RegisterResult is returned by Engine.Register.
type RegisterResult struct {
	UserID   string
	Email    string
	Username string
}

// LoginResult is returned by Engine.Login.
//
// When RequiresMFA is set no session was created: call Login again with the
// same credentials and a TOTP or backup code.
type LoginResult struct {
	UserID      string
	Username    string
	SessionID   string
	Session     *Session
	RequiresMFA bool
	// MFAMethod is "totp" or "backup_code" when a second factor was used.
	MFAMethod string
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	UserID    string
	SessionID string
	DeviceID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
