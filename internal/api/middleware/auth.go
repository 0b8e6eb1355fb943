package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medicore/clinic-api/internal/api/metrics"
	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

const (
	accountKey = "account"
	tokenKey   = "token"
)

// Gate guards routes with bearer-token authentication and role checks.
type Gate struct {
	verifier ports.TokenVerifier
	accounts ports.AccountReader
	log      zerolog.Logger
}

func NewGate(verifier ports.TokenVerifier, accounts ports.AccountReader, log zerolog.Logger) *Gate {
	return &Gate{verifier: verifier, accounts: accounts, log: log}
}

// Authenticated verifies the bearer token, re-reads the account and attaches
// it to the context. Nothing is cached between requests, so deactivation is
// seen on the next request.
func (g *Gate) Authenticated() echo.MiddlewareFunc {
	return g.authenticate
}

func (g *Gate) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if raw == "" {
			return reject("authn", "missing_token", http.StatusUnauthorized, "Authentication required", domain.ErrInvalidToken)
		}

		claims, err := g.verifier.Verify(raw)
		if err != nil {
			if errors.Is(err, domain.ErrMisconfigured) {
				g.log.Error().Str("path", c.Path()).Msg("bearer token received but JWT_SECRET is not configured")
				return reject("authn", "misconfigured", http.StatusInternalServerError, "Server configuration error", err)
			}
			return reject("authn", "invalid_token", http.StatusUnauthorized, "Invalid or expired token", err)
		}

		account, err := g.accounts.FindByID(c.Request().Context(), claims.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return reject("authn", "unknown_account", http.StatusUnauthorized, "User not found", err)
			}
			return err
		}
		if !account.IsActive {
			return reject("authn", "deactivated", http.StatusUnauthorized, "Account is deactivated", domain.ErrAccountDeactivated)
		}

		SetAccount(c, account, raw)
		return next(c)
	}
}

// SetAccount attaches an authenticated account and its bearer token to c.
func SetAccount(c echo.Context, account *domain.Account, token string) {
	c.Set(accountKey, account)
	c.Set(tokenKey, token)
}

// AccountFrom returns the account attached by the authentication gate.
func AccountFrom(c echo.Context) (*domain.Account, bool) {
	a, ok := c.Get(accountKey).(*domain.Account)
	return a, ok && a != nil
}

// TokenFrom returns the raw bearer token of the current request.
func TokenFrom(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

// bearerToken extracts <token> from "Bearer <token>". The scheme is
// case-insensitive.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// reject counts the rejection and returns the client-facing HTTP error with
// the domain cause attached, so errors.Is still sees the sentinel.
func reject(gate, reason string, code int, msg string, cause error) error {
	metrics.GateRejectionsTotal.WithLabelValues(gate, reason).Inc()
	return echo.NewHTTPError(code, msg).SetInternal(cause)
}
