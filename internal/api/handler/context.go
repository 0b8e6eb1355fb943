package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medicore/clinic-api/internal/api/middleware"
	"github.com/medicore/clinic-api/internal/core/domain"
)

// maxBodyBytes bounds request bodies decoded by bindStrict.
const maxBodyBytes = 1 << 20

// currentAccount returns the account resolved by the authentication gate.
// Its absence means the route was mounted without the gate.
func currentAccount(c echo.Context) (*domain.Account, error) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return account, nil
}

// bindAndValidate runs Echo's binder (path, query and body) and validates the result.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return domain.NewValidationError("Invalid request body")
	}
	return c.Validate(dst)
}

// bindStrict decodes a JSON body, rejecting fields dst does not declare, and
// validates it.
func bindStrict(c echo.Context, dst any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return domain.NewValidationError("Unknown field " + field)
		}
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("Request body is required")
		}
		return domain.NewValidationError("Invalid request body")
	}
	if dec.More() {
		return domain.NewValidationError("Invalid request body")
	}
	return c.Validate(dst)
}
