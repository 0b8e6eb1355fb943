package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

// AccountHandler serves account administration. Every route is admin only.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

type listAccountsQuery struct {
	Role   string `query:"role"   json:"role"   validate:"omitempty,role"`
	Active string `query:"active" json:"active" validate:"omitempty,boolean"`
}

// List handles GET /api/accounts.
//
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "admin, doctor or patient"
// @Param        active  query     bool    false  "Filter by active flag"
// @Success      200     {array}   accountResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /api/accounts [get]
func (h *AccountHandler) List(c echo.Context) error {
	var q listAccountsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	var filter ports.ListAccountsFilter
	if q.Role != "" {
		role, err := domain.ParseRole(q.Role)
		if err != nil {
			return err
		}
		filter.Role = role
	}
	if q.Active != "" {
		active, err := strconv.ParseBool(q.Active)
		if err != nil {
			return domain.NewValidationError("active must be true or false")
		}
		filter.Active = &active
	}

	accounts, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponses(accounts))
}

// Get handles GET /api/accounts/:id.
//
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/accounts/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Deactivate handles PUT /api/accounts/:id/deactivate.
//
// @Summary      Deactivate an account
// @Description  Outstanding tokens of the account stop working on their next request.
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/accounts/{id}/deactivate [put]
func (h *AccountHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

// Activate handles PUT /api/accounts/:id/activate.
//
// @Summary      Reactivate an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/accounts/{id}/activate [put]
func (h *AccountHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *AccountHandler) setActive(c echo.Context, active bool) error {
	actor, err := currentAccount(c)
	if err != nil {
		return err
	}

	account, err := h.service.SetActive(c.Request().Context(), actor.ID, c.Param("id"), active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}
