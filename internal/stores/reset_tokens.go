package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
)

// ResetTokensKey holds the email → token record map.
const ResetTokensKey = "password_reset_tokens"

var (
	ErrResetNotFound       = errors.New("reset record not found")
	ErrResetExpired        = errors.New("reset record expired")
	ErrResetSecretMismatch = errors.New("reset secret mismatch")
)

// ResetToken is a pending password reset. Only the SHA-256 of the token is
// kept.
type ResetToken struct {
	TokenHash string    `json:"tokenHash"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
}

// ResetTokenStore keeps at most one pending reset per email.
type ResetTokenStore struct {
	vault *vault.Vault
	now   func() time.Time
}

func NewResetTokenStore(v *vault.Vault, now func() time.Time) *ResetTokenStore {
	if now == nil {
		now = time.Now
	}
	return &ResetTokenStore{vault: v, now: now}
}

// Save stores the hash of token for email, replacing any earlier record.
// Expired records of other emails are dropped on the way.
func (s *ResetTokenStore) Save(ctx context.Context, email, userID, token string, ttl time.Duration) error {
	now := s.now()
	rec := ResetToken{
		TokenHash: internal.SHA256HexString(token),
		ExpiresAt: now.Add(ttl).UTC(),
		UserID:    userID,
	}
	return vault.Mutate(ctx, s.vault, ResetTokensKey, func(m *map[string]ResetToken, _ bool) (vault.Op, error) {
		if *m == nil {
			*m = make(map[string]ResetToken)
		}
		for k, r := range *m {
			if !now.Before(r.ExpiresAt) {
				delete(*m, k)
			}
		}
		(*m)[email] = rec
		return vault.Save, nil
	})
}

// Verify checks token against the record for email. An expired record is
// deleted and reported as ErrResetExpired.
func (s *ResetTokenStore) Verify(ctx context.Context, email, token string) (*ResetToken, error) {
	var (
		out    *ResetToken
		result error
	)
	err := vault.Mutate(ctx, s.vault, ResetTokensKey, func(m *map[string]ResetToken, _ bool) (vault.Op, error) {
		rec, ok := (*m)[email]
		if !ok {
			result = ErrResetNotFound
			return vault.Keep, nil
		}
		if !s.now().Before(rec.ExpiresAt) {
			result = ErrResetExpired
			delete(*m, email)
			return saveOrRemove(*m), nil
		}
		if subtle.ConstantTimeCompare([]byte(internal.SHA256HexString(token)), []byte(rec.TokenHash)) != 1 {
			result = ErrResetSecretMismatch
			return vault.Keep, nil
		}
		out = &rec
		return vault.Keep, nil
	})
	if err != nil {
		return nil, err
	}
	return out, result
}

// Consume verifies token and deletes the record in the same update, so a
// token can succeed at most once.
func (s *ResetTokenStore) Consume(ctx context.Context, email, token string) (*ResetToken, error) {
	var (
		out    *ResetToken
		result error
	)
	err := vault.Mutate(ctx, s.vault, ResetTokensKey, func(m *map[string]ResetToken, _ bool) (vault.Op, error) {
		rec, ok := (*m)[email]
		if !ok {
			result = ErrResetNotFound
			return vault.Keep, nil
		}
		if !s.now().Before(rec.ExpiresAt) {
			result = ErrResetExpired
			delete(*m, email)
			return saveOrRemove(*m), nil
		}
		if subtle.ConstantTimeCompare([]byte(internal.SHA256HexString(token)), []byte(rec.TokenHash)) != 1 {
			result = ErrResetSecretMismatch
			return vault.Keep, nil
		}
		out = &rec
		delete(*m, email)
		return saveOrRemove(*m), nil
	})
	if err != nil {
		return nil, err
	}
	return out, result
}

// Delete drops the record for email, if any.
func (s *ResetTokenStore) Delete(ctx context.Context, email string) error {
	return vault.Mutate(ctx, s.vault, ResetTokensKey, func(m *map[string]ResetToken, _ bool) (vault.Op, error) {
		if _, ok := (*m)[email]; !ok {
			return vault.Keep, nil
		}
		delete(*m, email)
		return saveOrRemove(*m), nil
	})
}

// Pending reports whether an unexpired record exists for email.
func (s *ResetTokenStore) Pending(ctx context.Context, email string) (bool, error) {
	var m map[string]ResetToken
	if _, err := s.vault.Get(ctx, ResetTokensKey, &m); err != nil {
		return false, err
	}
	rec, ok := m[email]
	return ok && s.now().Before(rec.ExpiresAt), nil
}

func saveOrRemove(m map[string]ResetToken) vault.Op {
	if len(m) == 0 {
		return vault.Remove
	}
	return vault.Save
}
