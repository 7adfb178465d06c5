package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// ErrIncompleteClaims is returned for validly signed tokens that lack a user
// or session id.
var ErrIncompleteClaims = errors.New("session token missing uid or sid")

// Config configures a Manager. VerifyKeys adds keys accepted during rotation,
// indexed by kid.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	Now           func() time.Time
}

// SessionClaims asserts that a user holds a session on a device.
type SessionClaims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	DID string `json:"did,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and parses session assertions. Immutable after NewManager.
type Manager struct {
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
	keys     *keyring
	parser   *jwt.Parser
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("session token TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("session token leeway must be within [0, 2m]")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	keys, err := newKeyring(cfg)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{keys.method.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Manager{
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
		keys:     keys,
		parser:   jwt.NewParser(opts...),
	}, nil
}

// Issue signs an assertion for uid/sid/did. A verify-only manager returns
// ErrNoSigningKey.
func (m *Manager) Issue(uid, sid, did string) (string, error) {
	if uid == "" || sid == "" {
		return "", ErrIncompleteClaims
	}
	if m.keys.sign == nil {
		return "", ErrNoSigningKey
	}

	now := m.now()
	claims := SessionClaims{
		UID: uid,
		SID: sid,
		DID: did,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.keys.method, claims)
	if m.keys.kid != "" {
		token.Header["kid"] = m.keys.kid
	}
	return token.SignedString(m.keys.sign)
}

// Parse checks signature, expiry, issuer and audience. It says nothing about
// whether the session still exists.
func (m *Manager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, m.keys.lookup); err != nil {
		return nil, err
	}
	if claims.UID == "" || claims.SID == "" {
		return nil, ErrIncompleteClaims
	}
	return claims, nil
}
