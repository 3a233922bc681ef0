// Package auth issues and verifies the signed, time-limited access tokens
// handed to clients after login.
//
// Verification is stateless: a token is valid iff its HS256 signature matches
// the server secret and the current time is before its expiry. There is no
// revocation list; rotating the secret invalidates every outstanding token.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a backend access token.
const DefaultTTL = 24 * time.Hour

// Identity is the set of subject fields carried by an access token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Claims is the JWT payload: identity fields plus the registered iat/exp/jti.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Token is a freshly issued access token together with its authoritative expiry.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Option func(*Manager)

// WithClock overrides time.Now for issuance and verification.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is both the TokenIssuer and the TokenVerifier; the secret is
// read-only after construction, so a Manager is safe for concurrent use.
type Manager struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

var ErrEmptySecret = errors.New("signing secret must not be empty")

func NewManager(secret []byte, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	m := &Manager{secret: append([]byte(nil), secret...), now: time.Now}
	for _, o := range opts {
		o(m)
	}

	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	return m, nil
}

// Issue signs identity with iat=now and exp=now+ttl.
func (m *Manager) Issue(identity Identity, ttl time.Duration) (*Token, error) {
	// JWT NumericDate has second precision; truncate so the reported expiry
	// matches what verification will enforce
	now := m.now().Truncate(time.Second)
	exp := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		UserID:   identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, err
	}

	return &Token{Value: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks signature and expiry and returns the identity claims.
// Expired tokens yield common.ErrTokenExpired; every other failure yields
// common.ErrInvalidToken. Verify never mutates state.
func (m *Manager) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}

	token, err := m.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{ID: claims.UserID, Username: claims.Username, Email: claims.Email}, nil
}
