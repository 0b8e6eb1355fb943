package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicore/clinic-api/internal/core/domain"
)

// Allow authenticates the request and then requires the account role to be
// one of roles. Both checks live in one middleware so the role check can
// never be mounted without authentication in front of it.
func (g *Gate) Allow(roles ...domain.Role) echo.MiddlewareFunc {
	authz := authorize(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return g.authenticate(authz(next))
	}
}

// authorize enforces role-based access control on the account resolved by
// authenticate. The role comes from the stored account, not the token.
func authorize(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			panic("middleware: unknown role " + string(r))
		}
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account, ok := AccountFrom(c)
			if !ok {
				return reject("authz", "missing_token", http.StatusUnauthorized, "Authentication required", domain.ErrInvalidToken)
			}
			if _, ok := allowed[account.Role]; !ok {
				return reject("authz", "forbidden", http.StatusForbidden, "You do not have permission to perform this action", domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
