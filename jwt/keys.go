package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnknownKey   = errors.New("unknown signing key id")
	ErrNoSigningKey = errors.New("no signing key configured")
)

// keyring holds keys decoded once at construction. For hs256 the secret is
// both the signing and the verification key.
type keyring struct {
	method jwt.SigningMethod
	kid    string
	sign   any
	// verify maps kid to key; the "" entry is used for tokens without a kid
	// when no explicit key set was configured.
	verify map[string]any
}

func newKeyring(cfg Config) (*keyring, error) {
	k := &keyring{
		kid:    strings.TrimSpace(cfg.KeyID),
		verify: make(map[string]any),
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
		k.method = jwt.SigningMethodHS256
		k.sign = cfg.PrivateKey
		k.verify[k.kid] = cfg.PrivateKey
		for kid, secret := range cfg.VerifyKeys {
			k.verify[kid] = secret
		}

	case MethodEd25519:
		k.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := decodeEdPrivate(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			k.sign = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := decodeEdPublic(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			k.verify[k.kid] = pub
		}
		for kid, raw := range cfg.VerifyKeys {
			pub, err := decodeEdPublic(raw)
			if err != nil {
				return nil, fmt.Errorf("verify key %q: %w", kid, err)
			}
			k.verify[kid] = pub
		}
		if len(k.verify) == 0 {
			return nil, errors.New("ed25519 requires a public key or verify key set")
		}

	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	for kid := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key set contains an empty kid")
		}
	}
	if k.kid != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[k.kid]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	return k, nil
}

// lookup is the jwt.Keyfunc. A configured KeyID makes the kid header
// mandatory.
func (k *keyring) lookup(t *jwt.Token) (any, error) {
	if t.Method.Alg() != k.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm %s", t.Method.Alg())
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" && k.kid != "" {
		return nil, ErrUnknownKey
	}
	key, ok := k.verify[kid]
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

func decodeEdPrivate(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(raw), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return key, nil
}

func decodeEdPublic(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(raw), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	key, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return key, nil
}
