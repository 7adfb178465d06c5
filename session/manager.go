package session

import (
	"context"
	"errors"
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
	"github.com/rs/zerolog"
)

const (
	// KeyPrefix namespaces session lists by user id.
	KeyPrefix = "sessions_"
	// CurrentKey points at the session of this install.
	CurrentKey = "current_session_id"
	// DeviceKey holds the install-wide device id.
	DeviceKey = "device_id"

	idBytes = 16
)

// DefaultMaxAge is how long a session stays valid after creation.
const DefaultMaxAge = 90 * 24 * time.Hour

// Config configures a Manager.
type Config struct {
	MaxAge time.Duration
	// MaxSessionsPerUser evicts the oldest sessions beyond the cap.
	// Zero means unlimited.
	MaxSessionsPerUser int
	Device             DeviceInfo
	Now                func() time.Time
	Logger             zerolog.Logger
}

// Manager tracks the sessions of every user on this install.
type Manager struct {
	vault  *vault.Vault
	config Config
	log    zerolog.Logger
}

// NewManager validates cfg and returns a manager backed by v.
func NewManager(v *vault.Vault, cfg Config) (*Manager, error) {
	if v == nil {
		return nil, errors.New("session manager requires a vault")
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxAge < 0 {
		return nil, errors.New("session max age must be > 0")
	}
	if cfg.MaxSessionsPerUser < 0 {
		return nil, errors.New("session max per user must be >= 0")
	}
	if cfg.Device == nil {
		cfg.Device = HostDevice{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{vault: v, config: cfg, log: cfg.Logger}, nil
}

func listKey(userID string) string {
	return KeyPrefix + userID
}

// InitializeDeviceID returns the install's device id, creating it once.
func (m *Manager) InitializeDeviceID(ctx context.Context) (string, error) {
	var id string
	err := vault.Mutate(ctx, m.vault, DeviceKey, func(cur *string, exists bool) (vault.Op, error) {
		if exists && *cur != "" {
			id = *cur
			return vault.Keep, nil
		}
		fresh, err := internal.RandomHex(idBytes)
		if err != nil {
			return vault.Keep, err
		}
		*cur = fresh
		id = fresh
		return vault.Save, nil
	})
	return id, err
}

// CreateSession records a new session for userID on this device and makes
// it the current one. Expired sessions are pruned first.
func (m *Manager) CreateSession(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, errors.New("session requires a user id")
	}

	deviceID, err := m.InitializeDeviceID(ctx)
	if err != nil {
		return Session{}, err
	}
	sid, err := internal.RandomHex(idBytes)
	if err != nil {
		return Session{}, err
	}

	now := m.config.Now().UTC()
	sess := Session{
		SessionID:  sid,
		DeviceID:   deviceID,
		DeviceName: m.config.Device.DeviceName(),
		Platform:   m.config.Device.Platform(),
		CreatedAt:  now,
		LastActive: now,
	}

	err = vault.Mutate(ctx, m.vault, listKey(userID), func(list *[]Session, _ bool) (vault.Op, error) {
		kept := m.prune(*list, now)
		kept = append(kept, sess)
		if max := m.config.MaxSessionsPerUser; max > 0 && len(kept) > max {
			m.log.Debug().Str("user_id", userID).Int("evicted", len(kept)-max).Msg("session cap reached")
			kept = kept[len(kept)-max:]
		}
		*list = kept
		return vault.Save, nil
	})
	if err != nil {
		return Session{}, err
	}

	if err := m.vault.Put(ctx, CurrentKey, sid); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// CurrentSessionID returns the install's current session id, or "".
func (m *Manager) CurrentSessionID(ctx context.Context) (string, error) {
	var id string
	if _, err := m.vault.Get(ctx, CurrentKey, &id); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateLastActive bumps LastActive on the current session of userID.
func (m *Manager) UpdateLastActive(ctx context.Context, userID string) error {
	current, err := m.CurrentSessionID(ctx)
	if err != nil || current == "" {
		return err
	}
	now := m.config.Now().UTC()
	return vault.Mutate(ctx, m.vault, listKey(userID), func(list *[]Session, _ bool) (vault.Op, error) {
		for i := range *list {
			if (*list)[i].SessionID == current {
				(*list)[i].LastActive = now
				return vault.Save, nil
			}
		}
		return vault.Keep, nil
	})
}

// RevokeSession removes one session. It reports false when the session did
// not exist.
func (m *Manager) RevokeSession(ctx context.Context, userID, sessionID string) (bool, error) {
	removed := false
	err := vault.Mutate(ctx, m.vault, listKey(userID), func(list *[]Session, _ bool) (vault.Op, error) {
		kept := (*list)[:0]
		for _, s := range *list {
			if s.SessionID == sessionID {
				removed = true
				continue
			}
			kept = append(kept, s)
		}
		if !removed {
			return vault.Keep, nil
		}
		*list = kept
		return saveOrRemove(kept), nil
	})
	if err != nil || !removed {
		return false, err
	}

	if err := m.clearCurrentIf(ctx, sessionID); err != nil {
		return true, err
	}
	return true, nil
}

// RevokeAllOtherSessions removes every session of userID except the current
// one and returns how many were removed.
func (m *Manager) RevokeAllOtherSessions(ctx context.Context, userID string) (int, error) {
	current, err := m.CurrentSessionID(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	err = vault.Mutate(ctx, m.vault, listKey(userID), func(list *[]Session, _ bool) (vault.Op, error) {
		kept := (*list)[:0]
		for _, s := range *list {
			if s.SessionID == current {
				kept = append(kept, s)
				continue
			}
			count++
		}
		if count == 0 {
			return vault.Keep, nil
		}
		*list = kept
		return saveOrRemove(kept), nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RevokeAllSessions signs userID out everywhere and clears the current
// pointer.
func (m *Manager) RevokeAllSessions(ctx context.Context, userID string) error {
	if err := m.vault.Delete(ctx, listKey(userID)); err != nil {
		return err
	}
	return m.vault.Delete(ctx, CurrentKey)
}

// Status is the outcome of Check.
type Status uint8

const (
	StatusNotFound Status = iota
	StatusValid
	StatusExpired
)

// IsSessionValid reports whether sessionID exists and is younger than
// MaxAge.
func (m *Manager) IsSessionValid(ctx context.Context, userID, sessionID string) (bool, error) {
	st, err := m.Check(ctx, userID, sessionID)
	return st == StatusValid, err
}

// Check looks sessionID up. Finding an expired session removes every
// expired entry of the user. Any outcome other than StatusValid clears the
// current pointer when it names sessionID.
func (m *Manager) Check(ctx context.Context, userID, sessionID string) (Status, error) {
	now := m.config.Now()
	status := StatusNotFound
	err := vault.Mutate(ctx, m.vault, listKey(userID), func(list *[]Session, _ bool) (vault.Op, error) {
		for _, s := range *list {
			if s.SessionID != sessionID {
				continue
			}
			if !s.expired(now, m.config.MaxAge) {
				status = StatusValid
				return vault.Keep, nil
			}
			status = StatusExpired
			kept := m.prune(*list, now)
			m.log.Debug().Str("user_id", userID).Int("expired", len(*list)-len(kept)).Msg("expired sessions removed")
			*list = kept
			return saveOrRemove(kept), nil
		}
		return vault.Keep, nil
	})
	if err != nil {
		return StatusNotFound, err
	}
	if status != StatusValid {
		if err := m.clearCurrentIf(ctx, sessionID); err != nil {
			return status, err
		}
	}
	return status, nil
}

// FindSession returns the session if it exists and has not expired.
func (m *Manager) FindSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	list, err := m.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].SessionID == sessionID {
			return &list[i], nil
		}
	}
	return nil, nil
}

// ListSessions returns the unexpired sessions of userID, oldest first.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	var list []Session
	if _, err := m.vault.Get(ctx, listKey(userID), &list); err != nil {
		return nil, err
	}
	return m.prune(list, m.config.Now()), nil
}

func (m *Manager) prune(list []Session, now time.Time) []Session {
	out := make([]Session, 0, len(list)+1)
	for _, s := range list {
		if !s.expired(now, m.config.MaxAge) {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) clearCurrentIf(ctx context.Context, sessionID string) error {
	return vault.Mutate(ctx, m.vault, CurrentKey, func(cur *string, exists bool) (vault.Op, error) {
		if exists && *cur == sessionID {
			return vault.Remove, nil
		}
		return vault.Keep, nil
	})
}

func saveOrRemove(list []Session) vault.Op {
	if len(list) == 0 {
		return vault.Remove
	}
	return vault.Save
}
