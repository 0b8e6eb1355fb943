// Package token issues and verifies the HS256 bearer tokens handed to
// clients after signup and login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medicore/clinic-api/internal/core/domain"
)

const (
	// Lifetime is how long a token stays valid after issuance.
	Lifetime = 24 * time.Hour

	issuer = "clinic-api"
)

// claims is the JWT payload. userId matches the claim name the web client
// already decodes.
type claims struct {
	AccountID string `json:"userId"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single process-wide secret.
type Manager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, both for issuance and for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager. An empty secret is accepted so the process
// can start; Issue and Verify then fail with domain.ErrMisconfigured.
func NewManager(secret string, opts ...Option) *Manager {
	m := &Manager{
		secret:   []byte(secret),
		lifetime: Lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether a signing secret is present.
func (m *Manager) Configured() bool {
	return len(m.secret) > 0
}

// Issue returns a signed token for accountID carrying role.
func (m *Manager) Issue(accountID string, role domain.Role) (string, error) {
	if !m.Configured() {
		return "", domain.ErrMisconfigured
	}
	if accountID == "" || !role.Valid() {
		return "", fmt.Errorf("issue token: account id and valid role required")
	}

	now := m.now()
	c := claims{
		AccountID: accountID,
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks algorithm, signature, issuer and expiry of raw. Every
// rejection wraps domain.ErrInvalidToken; expiry additionally wraps
// domain.ErrTokenExpired.
func (m *Manager) Verify(raw string) (*domain.SessionClaims, error) {
	if !m.Configured() {
		return nil, domain.ErrMisconfigured
	}
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	var c claims
	tkn, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, domain.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	role, err := domain.ParseRole(c.Role)
	if err != nil || c.AccountID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", domain.ErrInvalidToken)
	}

	return &domain.SessionClaims{
		AccountID: c.AccountID,
		Role:      role,
		TokenID:   c.ID,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
