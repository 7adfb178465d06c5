package mfa

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
	"github.com/rs/zerolog"
)

// KeyPrefix namespaces MFA records by user id.
const KeyPrefix = "mfa_"

var (
	// ErrNotEnabled is returned by operations that need an enrolled user.
	ErrNotEnabled = errors.New("mfa not enabled")
)

// Config configures a Manager.
type Config struct {
	TOTP             TOTPConfig
	BackupCodeCount  int
	BackupCodeDigits int
	// EnforceReplayProtection rejects a TOTP step at or before the last
	// accepted one.
	EnforceReplayProtection bool
	Now                     func() time.Time
	Logger                  zerolog.Logger
}

// DefaultConfig returns ten 8-digit backup codes and the default TOTP setup.
func DefaultConfig() Config {
	return Config{
		TOTP:             DefaultTOTPConfig(),
		BackupCodeCount:  10,
		BackupCodeDigits: 8,
	}
}

// Record is the persisted MFA state of one user.
type Record struct {
	Secret      string    `json:"secret"`
	Algorithm   string    `json:"algorithm,omitempty"`
	BackupCodes []string  `json:"backupCodes"`
	Enabled     bool      `json:"enabled"`
	EnabledAt   time.Time `json:"enabledAt"`
	LastCounter int64     `json:"lastCounter"`
}

// Enrollment is returned once by Enable. BackupCodes are plaintext and are
// never retrievable again.
type Enrollment struct {
	Secret      string
	SecretHex   string
	QRCodeData  string
	BackupCodes []string
}

// Method is the factor that satisfied a verification.
type Method uint8

const (
	MethodNone Method = iota
	MethodTOTP
	MethodBackupCode
)

func (m Method) String() string {
	switch m {
	case MethodTOTP:
		return "totp"
	case MethodBackupCode:
		return "backup_code"
	default:
		return "none"
	}
}

// Manager enrolls users and verifies second-factor codes.
type Manager struct {
	vault  *vault.Vault
	config Config
	log    zerolog.Logger
}

// NewManager validates cfg and returns a manager backed by v.
func NewManager(v *vault.Vault, cfg Config) (*Manager, error) {
	if v == nil {
		return nil, errors.New("mfa manager requires a vault")
	}
	if err := cfg.TOTP.validate(); err != nil {
		return nil, err
	}
	if cfg.BackupCodeCount <= 0 {
		return nil, errors.New("mfa backup code count must be > 0")
	}
	if cfg.BackupCodeDigits < 6 || cfg.BackupCodeDigits > 12 {
		return nil, errors.New("mfa backup code digits must be between 6 and 12")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TOTP.Algorithm == "" {
		cfg.TOTP.Algorithm = "SHA1"
	}
	return &Manager{vault: v, config: cfg, log: cfg.Logger}, nil
}

func key(userID string) string {
	return KeyPrefix + userID
}

// Enable generates a new secret and backup codes for userID, replacing any
// previous enrollment.
func (m *Manager) Enable(ctx context.Context, userID, email string) (*Enrollment, error) {
	if userID == "" {
		return nil, errors.New("mfa enable requires a user id")
	}

	secret, err := internal.RandomBytes(SecretBytes)
	if err != nil {
		return nil, err
	}
	codes, hashes, err := m.newBackupCodes()
	if err != nil {
		return nil, err
	}

	rec := Record{
		Secret:      hex.EncodeToString(secret),
		Algorithm:   strings.ToUpper(m.config.TOTP.Algorithm),
		BackupCodes: hashes,
		Enabled:     true,
		EnabledAt:   m.config.Now().UTC(),
		LastCounter: -1,
	}
	if err := m.vault.Put(ctx, key(userID), rec); err != nil {
		return nil, err
	}

	b32 := EncodeSecret(secret)
	return &Enrollment{
		Secret:      b32,
		SecretHex:   rec.Secret,
		QRCodeData:  ProvisionURI(m.config.TOTP, b32, email),
		BackupCodes: codes,
	}, nil
}

// Disable removes the user's MFA record.
func (m *Manager) Disable(ctx context.Context, userID string) error {
	return m.vault.Delete(ctx, key(userID))
}

// IsEnabled reports whether userID has an active enrollment.
func (m *Manager) IsEnabled(ctx context.Context, userID string) (bool, error) {
	var rec Record
	found, err := m.vault.Get(ctx, key(userID), &rec)
	if err != nil {
		return false, err
	}
	return found && rec.Enabled, nil
}

// VerifyCode is the boolean gate used by login: any failure, including
// storage errors, is a rejection.
func (m *Manager) VerifyCode(ctx context.Context, userID, code string) bool {
	method, err := m.Verify(ctx, userID, code)
	if err != nil {
		m.log.Warn().Err(err).Msg("mfa verification failed")
		return false
	}
	return method != MethodNone
}

// Verify tries code as a TOTP code and then as a backup code. A matched
// backup code is consumed. It returns MethodNone with a nil error for a
// wrong code, and ErrNotEnabled when the user is not enrolled.
func (m *Manager) Verify(ctx context.Context, userID, code string) (Method, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return MethodNone, nil
	}

	method := MethodNone
	err := vault.Mutate(ctx, m.vault, key(userID), func(rec *Record, exists bool) (vault.Op, error) {
		if !exists || !rec.Enabled {
			return vault.Keep, ErrNotEnabled
		}

		secret, err := hex.DecodeString(rec.Secret)
		if err != nil {
			return vault.Keep, err
		}

		cfg := m.config.TOTP
		if rec.Algorithm != "" {
			cfg.Algorithm = rec.Algorithm
		}
		ok, counter, err := verifyTOTP(secret, code, m.config.Now(), cfg)
		if err != nil {
			return vault.Keep, err
		}
		if ok && m.config.EnforceReplayProtection && counter <= rec.LastCounter {
			m.log.Debug().Str("user_id", userID).Msg("totp step replayed")
			ok = false
		}
		if ok {
			method = MethodTOTP
			if counter > rec.LastCounter {
				rec.LastCounter = counter
				return vault.Save, nil
			}
			return vault.Keep, nil
		}

		if i := matchBackupCode(rec.BackupCodes, code); i >= 0 {
			method = MethodBackupCode
			rec.BackupCodes = append(rec.BackupCodes[:i], rec.BackupCodes[i+1:]...)
			return vault.Save, nil
		}
		return vault.Keep, nil
	})
	if err != nil {
		return MethodNone, err
	}
	return method, nil
}

// RemainingBackupCodes returns how many unused backup codes userID has.
func (m *Manager) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	var rec Record
	found, err := m.vault.Get(ctx, key(userID), &rec)
	if err != nil {
		return 0, err
	}
	if !found || !rec.Enabled {
		return 0, ErrNotEnabled
	}
	return len(rec.BackupCodes), nil
}

// RegenerateBackupCodes replaces every backup code and returns the new
// plaintext set.
func (m *Manager) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes, hashes, err := m.newBackupCodes()
	if err != nil {
		return nil, err
	}
	err = vault.Mutate(ctx, m.vault, key(userID), func(rec *Record, exists bool) (vault.Op, error) {
		if !exists || !rec.Enabled {
			return vault.Keep, ErrNotEnabled
		}
		rec.BackupCodes = hashes
		return vault.Save, nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (m *Manager) newBackupCodes() ([]string, []string, error) {
	codes := make([]string, m.config.BackupCodeCount)
	hashes := make([]string, m.config.BackupCodeCount)
	for i := range codes {
		c, err := internal.NumericCode(m.config.BackupCodeDigits)
		if err != nil {
			return nil, nil, err
		}
		codes[i] = c
		hashes[i] = internal.SHA256HexString(c)
	}
	return codes, hashes, nil
}

// matchBackupCode compares against every stored hash so the time taken does
// not depend on which code matched.
func matchBackupCode(hashes []string, code string) int {
	digest := []byte(internal.SHA256HexString(code))
	match := -1
	for i, h := range hashes {
		if subtle.ConstantTimeCompare(digest, []byte(h)) == 1 && match < 0 {
			match = i
		}
	}
	return match
}
