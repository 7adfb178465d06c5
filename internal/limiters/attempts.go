package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/vault"
)

// AttemptConfig configures an AttemptLimiter.
type AttemptConfig struct {
	// KeyPrefix is prepended to the identifier to form the storage key,
	// e.g. "login_attempts_".
	KeyPrefix   string
	MaxAttempts int
	// ResetAfter is the inactivity gap after which the count starts over.
	ResetAfter   time.Duration
	LockDuration time.Duration
	Now          func() time.Time
}

// LoginAttempts is the login lockout policy: 5 failures within 15 minutes
// lock the identifier for 30 minutes.
func LoginAttempts() AttemptConfig {
	return AttemptConfig{
		KeyPrefix:    "login_attempts_",
		MaxAttempts:  5,
		ResetAfter:   15 * time.Minute,
		LockDuration: 30 * time.Minute,
	}
}

// ResetAttempts is the password-reset request policy: 3 requests within an
// hour lock the identifier for an hour.
func ResetAttempts() AttemptConfig {
	return AttemptConfig{
		KeyPrefix:    "reset_attempts_",
		MaxAttempts:  3,
		ResetAfter:   time.Hour,
		LockDuration: time.Hour,
	}
}

// AttemptCounter is the persisted per-identifier state.
type AttemptCounter struct {
	Count         int        `json:"count"`
	LastAttemptAt time.Time  `json:"lastAttemptAt"`
	LockedUntil   *time.Time `json:"lockedUntil,omitempty"`
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Attempts   int
}

// AttemptLimiter counts failures per identifier in the vault and locks the
// identifier once MaxAttempts is reached. A nil limiter allows everything.
type AttemptLimiter struct {
	vault  *vault.Vault
	config AttemptConfig
}

// NewAttemptLimiter validates cfg and returns a limiter backed by v.
func NewAttemptLimiter(v *vault.Vault, cfg AttemptConfig) (*AttemptLimiter, error) {
	if v == nil {
		return nil, errors.New("attempt limiter requires a vault")
	}
	if cfg.KeyPrefix == "" {
		return nil, errors.New("attempt limiter key prefix must be set")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("attempt limiter max attempts must be > 0")
	}
	if cfg.ResetAfter <= 0 || cfg.LockDuration <= 0 {
		return nil, errors.New("attempt limiter windows must be > 0")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AttemptLimiter{vault: v, config: cfg}, nil
}

func (l *AttemptLimiter) key(id string) string {
	return l.config.KeyPrefix + id
}

// Status reports whether id is currently locked without recording anything.
func (l *AttemptLimiter) Status(ctx context.Context, id string) (Decision, error) {
	if l == nil {
		return Decision{Allowed: true}, nil
	}

	var c AttemptCounter
	found, err := l.vault.Get(ctx, l.key(id), &c)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{Allowed: true}, nil
	}

	now := l.config.Now()
	if c.LockedUntil != nil && now.Before(*c.LockedUntil) {
		return Decision{RetryAfter: c.LockedUntil.Sub(now), Attempts: c.Count}, nil
	}
	if c.LockedUntil != nil || now.Sub(c.LastAttemptAt) > l.config.ResetAfter {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: true, Attempts: c.Count}, nil
}

// CheckAndRecordFailure records one failed attempt for id. While a lock is
// active the attempt is not counted and the remaining lock time is returned.
// The attempt that reaches MaxAttempts sets the lock and is itself reported
// as not allowed.
func (l *AttemptLimiter) CheckAndRecordFailure(ctx context.Context, id string) (Decision, error) {
	if l == nil {
		return Decision{Allowed: true}, nil
	}

	var d Decision
	err := vault.Mutate(ctx, l.vault, l.key(id), func(c *AttemptCounter, exists bool) (vault.Op, error) {
		now := l.config.Now()

		if c.LockedUntil != nil {
			if now.Before(*c.LockedUntil) {
				d = Decision{RetryAfter: c.LockedUntil.Sub(now), Attempts: c.Count}
				return vault.Keep, nil
			}
			*c = AttemptCounter{}
		}
		if exists && now.Sub(c.LastAttemptAt) > l.config.ResetAfter {
			c.Count = 0
		}

		c.Count++
		c.LastAttemptAt = now
		d = Decision{Allowed: true, Attempts: c.Count}

		if c.Count >= l.config.MaxAttempts {
			until := now.Add(l.config.LockDuration)
			c.LockedUntil = &until
			d = Decision{RetryAfter: l.config.LockDuration, Attempts: c.Count}
		}
		return vault.Save, nil
	})
	if err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Clear forgets every attempt recorded for id.
func (l *AttemptLimiter) Clear(ctx context.Context, id string) error {
	if l == nil {
		return nil
	}
	return l.vault.Delete(ctx, l.key(id))
}
