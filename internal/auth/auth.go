// Package auth implements the admin-capability check. Identity lives with an
// external provider; this package only exchanges the deployment admin key for
// a short-lived signed token and verifies it on admin routes.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid admin token")
)

type Manager struct {
	adminKey   string
	signingKey []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewManager(adminKey, signingKey string, sessionTTL time.Duration) (*Manager, error) {
	if adminKey == "" {
		return nil, fmt.Errorf("admin key is required")
	}
	if len(signingKey) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes")
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &Manager{
		adminKey:   adminKey,
		signingKey: []byte(signingKey),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}, nil
}

// Login exchanges the deployment admin key for a signed session token.
func (m *Manager) Login(adminKey string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(adminKey), []byte(m.adminKey)) != 1 {
		return "", ErrInvalidAdminKey
	}

	now := m.now()
	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(m.sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// Verify checks an admin session token. The result is the boolean capability
// the rest of the system relies on: valid token means admin.
func (m *Manager) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
