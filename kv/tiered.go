package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// TrustLevel declares how well a stored value is protected at rest by the
// tier that holds it.
type TrustLevel uint8

const (
	// TrustNone means no tier served the call (absent key or total failure).
	TrustNone TrustLevel = iota
	// TrustFallback is ordinary persistent storage.
	TrustFallback
	// TrustSecure is OS-level or otherwise access-controlled storage.
	TrustSecure
)

func (t TrustLevel) String() string {
	switch t {
	case TrustSecure:
		return "secure"
	case TrustFallback:
		return "fallback"
	default:
		return "none"
	}
}

// ErrSecureTierRequired is returned when the secure tier failed and fallback
// is disabled.
var ErrSecureTierRequired = errors.New("secure storage tier unavailable and fallback disabled")

// TieredConfig wires the two tiers. Either tier may be nil, but not both.
type TieredConfig struct {
	Secure        Store
	Fallback      Store
	AllowFallback bool
	Logger        zerolog.Logger
}

// Tiered tries the secure tier first and degrades to the fallback tier only
// when the secure tier is missing or reports ErrUnavailable. Every degraded
// call is logged and reported through the returned TrustLevel.
type Tiered struct {
	secure        Store
	fallback      Store
	allowFallback bool
	log           zerolog.Logger
}

// NewTiered validates cfg and returns the composed store.
func NewTiered(cfg TieredConfig) (*Tiered, error) {
	if cfg.Secure == nil && cfg.Fallback == nil {
		return nil, errors.New("tiered store requires at least one tier")
	}
	if cfg.Secure == nil && !cfg.AllowFallback {
		return nil, ErrSecureTierRequired
	}
	return &Tiered{
		secure:        cfg.Secure,
		fallback:      cfg.Fallback,
		allowFallback: cfg.AllowFallback,
		log:           cfg.Logger.With().Str("component", "kv.tiered").Logger(),
	}, nil
}

// Level is the best trust level this composition can offer.
func (t *Tiered) Level() TrustLevel {
	if t.secure != nil {
		return TrustSecure
	}
	return TrustFallback
}

func (t *Tiered) canFallback() bool {
	return t.allowFallback && t.fallback != nil
}

func (t *Tiered) degrade(op, key string, err error) error {
	if !t.canFallback() {
		if t.secure == nil {
			return ErrSecureTierRequired
		}
		return fmt.Errorf("%w: %v", ErrSecureTierRequired, err)
	}
	t.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("secure tier unavailable, using fallback storage")
	return nil
}

// GetWithTrust reads key and reports which tier held it.
func (t *Tiered) GetWithTrust(ctx context.Context, key string) ([]byte, TrustLevel, error) {
	if t.secure != nil {
		v, err := t.secure.Get(ctx, key)
		if err == nil && v != nil {
			return v, TrustSecure, nil
		}
		if err != nil {
			if !errors.Is(err, ErrUnavailable) {
				return nil, TrustNone, err
			}
			if derr := t.degrade("get", key, err); derr != nil {
				return nil, TrustNone, derr
			}
		}
	}

	// The value may have been written to the fallback tier while the secure
	// tier was down.
	if t.fallback != nil && (t.secure == nil || t.allowFallback) {
		v, err := t.fallback.Get(ctx, key)
		if err != nil {
			return nil, TrustNone, err
		}
		if v != nil {
			return v, TrustFallback, nil
		}
	}
	return nil, TrustNone, nil
}

// SetWithTrust writes key to the best available tier.
func (t *Tiered) SetWithTrust(ctx context.Context, key string, value []byte) (TrustLevel, error) {
	if t.secure != nil {
		err := t.secure.Set(ctx, key, value)
		if err == nil {
			t.dropFallbackCopy(ctx, key)
			return TrustSecure, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return TrustNone, err
		}
		if derr := t.degrade("set", key, err); derr != nil {
			return TrustNone, derr
		}
	}
	if err := t.fallback.Set(ctx, key, value); err != nil {
		return TrustNone, err
	}
	return TrustFallback, nil
}

// dropFallbackCopy removes a stale degraded copy once the secure tier has the
// authoritative value again.
func (t *Tiered) dropFallbackCopy(ctx context.Context, key string) {
	if t.fallback == nil || !t.allowFallback {
		return
	}
	if err := t.fallback.Delete(ctx, key); err != nil {
		t.log.Debug().Err(err).Str("key", key).Msg("fallback cleanup failed")
	}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	v, _, err := t.GetWithTrust(ctx, key)
	return v, err
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	_, err := t.SetWithTrust(ctx, key, value)
	return err
}

// Delete removes key from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	var firstErr error
	if t.secure != nil {
		if err := t.secure.Delete(ctx, key); err != nil {
			if !errors.Is(err, ErrUnavailable) || !t.canFallback() {
				return err
			}
			firstErr = err
		}
	}
	if t.fallback != nil && (t.secure == nil || t.allowFallback) {
		if err := t.fallback.Delete(ctx, key); err != nil {
			return err
		}
	}
	if firstErr != nil {
		t.log.Warn().Err(firstErr).Str("key", key).Msg("secure tier delete failed")
	}
	return nil
}

// CompareAndSwap runs against whichever tier currently holds (or would hold)
// the key: the secure tier when it is reachable, otherwise the fallback.
func (t *Tiered) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	if t.secure != nil {
		// A degraded copy must be promoted before CAS can compare against it.
		if prev != nil && t.canFallback() {
			cur, err := t.secure.Get(ctx, key)
			if err == nil && cur == nil {
				return t.promote(ctx, key, prev, next)
			}
		}
		ok, err := t.secure.CompareAndSwap(ctx, key, prev, next)
		if err == nil {
			if ok {
				t.dropFallbackCopy(ctx, key)
			}
			return ok, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return false, err
		}
		if derr := t.degrade("cas", key, err); derr != nil {
			return false, derr
		}
	}
	return t.fallback.CompareAndSwap(ctx, key, prev, next)
}

func (t *Tiered) promote(ctx context.Context, key string, prev, next []byte) (bool, error) {
	ok, err := t.fallback.CompareAndSwap(ctx, key, prev, nil)
	if err != nil || !ok {
		return ok, err
	}
	if next == nil {
		return true, nil
	}
	if err := t.secure.Set(ctx, key, next); err != nil {
		// Secure tier went away between calls; keep the value degraded.
		if ferr := t.fallback.Set(ctx, key, next); ferr != nil {
			return false, ferr
		}
		t.log.Warn().Err(err).Str("key", key).Msg("promotion to secure tier failed")
	}
	return true, nil
}
