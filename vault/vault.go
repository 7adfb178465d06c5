// Package vault is the encrypted JSON store every record of the auth core
// lives in. Values are sealed with AES-256-GCM under a per-install key that
// is generated once and kept in the secure storage tier.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/keylock"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv"
	"github.com/rs/zerolog"
)

// KeyName is the storage key of the per-install encryption key.
const KeyName = "encryption_key"

const (
	keySize      = 32
	nonceSize    = 12
	envelopeV1   = byte(1)
	mutateTries  = 4
	envelopeHead = 1 + nonceSize
)

var (
	// ErrDecryption is returned when a stored value fails authentication or
	// cannot be parsed after decryption.
	ErrDecryption = errors.New("stored value could not be decrypted")
	// ErrConflict is returned when Mutate loses every compare-and-swap retry.
	ErrConflict = errors.New("concurrent update conflict")
)

// Options tune Open.
type Options struct {
	// LegacyPlaintext accepts values written before encryption was enabled:
	// a value that fails to decrypt but parses as JSON is returned and
	// re-encrypted in place.
	LegacyPlaintext bool
	Logger          zerolog.Logger
}

// Vault seals JSON values before handing them to the underlying store.
type Vault struct {
	store  kv.Store
	aead   cipher.AEAD
	locks  keylock.Locker
	legacy bool
	log    zerolog.Logger
}

// Open loads the install key from store, creating it on first use.
func Open(ctx context.Context, store kv.Store, opts Options) (*Vault, error) {
	if store == nil {
		return nil, errors.New("vault requires a store")
	}
	key, err := loadOrCreateKey(ctx, store)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Vault{
		store:  store,
		aead:   aead,
		legacy: opts.LegacyPlaintext,
		log:    opts.Logger.With().Str("component", "vault").Logger(),
	}, nil
}

func loadOrCreateKey(ctx context.Context, store kv.Store) ([]byte, error) {
	for i := 0; i < mutateTries; i++ {
		raw, err := store.Get(ctx, KeyName)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			key, err := hex.DecodeString(string(raw))
			if err != nil || len(key) != keySize {
				return nil, fmt.Errorf("%w: malformed %s", ErrDecryption, KeyName)
			}
			return key, nil
		}

		key, err := internal.RandomBytes(keySize)
		if err != nil {
			return nil, err
		}
		ok, err := store.CompareAndSwap(ctx, KeyName, nil, []byte(hex.EncodeToString(key)))
		if err != nil {
			return nil, err
		}
		if ok {
			return key, nil
		}
		// Another opener won the race; read its key.
	}
	return nil, ErrConflict
}

// Put encrypts value as JSON and stores it under key.
func (v *Vault) Put(ctx context.Context, key string, value any) error {
	sealed, err := v.seal(key, value)
	if err != nil {
		return err
	}
	return v.store.Set(ctx, key, sealed)
}

// Get decrypts the value stored under key into out. It reports false when the
// key is absent.
func (v *Vault) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := v.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := v.open(key, raw, out); err != nil {
		if !v.legacy || !json.Valid(raw) {
			return false, err
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return false, err
		}
		v.migrateLegacy(ctx, key, raw, out)
	}
	return true, nil
}

// Delete removes key.
func (v *Vault) Delete(ctx context.Context, key string) error {
	unlock := v.locks.Lock(key)
	defer unlock()
	return v.store.Delete(ctx, key)
}

func (v *Vault) migrateLegacy(ctx context.Context, key string, raw []byte, value any) {
	sealed, err := v.seal(key, value)
	if err != nil {
		v.log.Warn().Err(err).Str("key", key).Msg("legacy value re-encryption failed")
		return
	}
	if _, err := v.store.CompareAndSwap(ctx, key, raw, sealed); err != nil {
		v.log.Warn().Err(err).Str("key", key).Msg("legacy value re-encryption failed")
		return
	}
	v.log.Info().Str("key", key).Msg("migrated plaintext value to encrypted storage")
}

// The storage key is bound as associated data so a ciphertext copied under a
// different key fails authentication.
func (v *Vault) seal(key string, value any) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	nonce, err := internal.RandomBytes(nonceSize)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, envelopeHead+len(plaintext)+v.aead.Overhead())
	out = append(out, envelopeV1)
	out = append(out, nonce...)
	return v.aead.Seal(out, nonce, plaintext, []byte(key)), nil
}

func (v *Vault) open(key string, raw []byte, out any) error {
	if len(raw) < envelopeHead+v.aead.Overhead() || raw[0] != envelopeV1 {
		return ErrDecryption
	}
	nonce := raw[1:envelopeHead]
	plaintext, err := v.aead.Open(nil, nonce, raw[envelopeHead:], []byte(key))
	if err != nil {
		return ErrDecryption
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return nil
}

// Op tells Mutate what to do with the value after the callback ran.
type Op uint8

const (
	// Keep leaves the stored value untouched.
	Keep Op = iota
	// Save writes the (possibly modified) value back.
	Save
	// Remove deletes the key.
	Remove
)

// Mutate runs a read-modify-write cycle on key. The callback receives the
// current value (zero value when absent) and decides the outcome. Cycles on
// the same key are serialized within the process and guarded by
// compare-and-swap at the backend, retried a bounded number of times.
func Mutate[T any](ctx context.Context, v *Vault, key string, fn func(cur *T, exists bool) (Op, error)) error {
	unlock := v.locks.Lock(key)
	defer unlock()

	for i := 0; i < mutateTries; i++ {
		raw, err := v.store.Get(ctx, key)
		if err != nil {
			return err
		}

		var cur T
		exists := raw != nil
		if exists {
			if err := v.open(key, raw, &cur); err != nil {
				if !v.legacy || !json.Valid(raw) {
					return err
				}
				if err := json.Unmarshal(raw, &cur); err != nil {
					return err
				}
			}
		}

		op, err := fn(&cur, exists)
		if err != nil {
			return err
		}

		var next []byte
		switch op {
		case Keep:
			return nil
		case Remove:
			if !exists {
				return nil
			}
		case Save:
			next, err = v.seal(key, &cur)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown vault op %d", op)
		}

		ok, err := v.store.CompareAndSwap(ctx, key, raw, next)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		v.log.Debug().Str("key", key).Int("attempt", i+1).Msg("compare-and-swap conflict, retrying")
	}
	return ErrConflict
}
