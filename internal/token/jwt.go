// Package token issues and verifies the two credential kinds the backend
// uses: signed stateless session tokens (JWT) and single-use hashed-at-rest
// secrets for password reset and email verification.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every session verification failure: bad signature,
// expired, malformed, wrong algorithm. Callers map it to a generic 401 so
// the response does not reveal which check failed.
var ErrInvalidToken = errors.New("invalid session token")

const maxFutureIAT = 10 * time.Minute

// Config for the session token manager. Secret is the HS256 signing key;
// SessionTTL is the validity window (default 7 days, set from environment).
type Config struct {
	Secret     []byte
	SessionTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Manager signs and verifies session tokens. Immutable after construction,
// safe for concurrent use.
type Manager struct {
	config Config
}

// SessionClaims binds a session token to an account id and issuance time.
type SessionClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssuedBefore reports whether the token was issued strictly before t.
// Used to reject sessions minted before the last password change.
func (c *SessionClaims) IssuedBefore(t time.Time) bool {
	if c.IssuedAt == nil {
		return true
	}
	return c.IssuedAt.Time.Before(t)
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("invalid session TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// IssueSession produces a signed token for the given account id with the
// configured lifetime.
func (m *Manager) IssueSession(userID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// VerifySession checks signature and expiry and returns the claims. Failures
// all wrap ErrInvalidToken; "account not found" is a separate concern the
// caller handles after the id lookup.
func (m *Manager) VerifySession(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.UID == "" {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(time.Now().Add(maxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidToken)
	}

	return claims, nil
}
