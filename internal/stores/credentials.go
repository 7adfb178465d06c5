package stores

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
)

// CredentialsKey holds the whole credential list as one encrypted value.
const CredentialsKey = "app_credentials"

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrCredentialNotFound = errors.New("credential not found")
)

// Credential is one registered account.
type Credential struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CredentialStore persists credentials in the vault. Emails are matched
// exactly unless FoldCase is set.
type CredentialStore struct {
	vault    *vault.Vault
	foldCase bool
	now      func() time.Time
}

func NewCredentialStore(v *vault.Vault, foldCase bool, now func() time.Time) *CredentialStore {
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{vault: v, foldCase: foldCase, now: now}
}

func (s *CredentialStore) same(a, b string) bool {
	if s.foldCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (s *CredentialStore) index(list []Credential, email string) int {
	for i := range list {
		if s.same(list[i].Email, email) {
			return i
		}
	}
	return -1
}

// Register adds a credential and returns its new user id.
func (s *CredentialStore) Register(ctx context.Context, email, passwordHash, username string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	userID := id.String()

	err = vault.Mutate(ctx, s.vault, CredentialsKey, func(list *[]Credential, _ bool) (vault.Op, error) {
		if s.index(*list, email) >= 0 {
			return vault.Keep, ErrEmailExists
		}
		*list = append(*list, Credential{
			Email:        email,
			PasswordHash: passwordHash,
			UserID:       userID,
			Username:     username,
			CreatedAt:    s.now().UTC(),
		})
		return vault.Save, nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// FindByEmail returns the credential for email, or nil when absent.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := s.index(list, email); i >= 0 {
		c := list[i]
		return &c, nil
	}
	return nil, nil
}

// FindByUserID returns the credential with the given user id, or nil.
func (s *CredentialStore) FindByUserID(ctx context.Context, userID string) (*Credential, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].UserID == userID {
			c := list[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *CredentialStore) Exists(ctx context.Context, email string) (bool, error) {
	c, err := s.FindByEmail(ctx, email)
	return c != nil, err
}

// UpdatePasswordHash replaces the stored hash for email.
func (s *CredentialStore) UpdatePasswordHash(ctx context.Context, email, newHash string) error {
	return vault.Mutate(ctx, s.vault, CredentialsKey, func(list *[]Credential, _ bool) (vault.Op, error) {
		i := s.index(*list, email)
		if i < 0 {
			return vault.Keep, ErrCredentialNotFound
		}
		(*list)[i].PasswordHash = newHash
		return vault.Save, nil
	})
}

// Delete removes the credential for email. Deleting an absent email is not
// an error.
func (s *CredentialStore) Delete(ctx context.Context, email string) error {
	return vault.Mutate(ctx, s.vault, CredentialsKey, func(list *[]Credential, _ bool) (vault.Op, error) {
		i := s.index(*list, email)
		if i < 0 {
			return vault.Keep, nil
		}
		*list = append((*list)[:i], (*list)[i+1:]...)
		return vault.Save, nil
	})
}

func (s *CredentialStore) load(ctx context.Context) ([]Credential, error) {
	var list []Credential
	if _, err := s.vault.Get(ctx, CredentialsKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}
