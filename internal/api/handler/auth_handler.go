package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicore/clinic-api/internal/api/metrics"
	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

type AuthHandler struct {
	authService    ports.AuthService
	accountService ports.AccountService
}

func NewAuthHandler(authService ports.AuthService, accountService ports.AccountService) *AuthHandler {
	return &AuthHandler{authService: authService, accountService: accountService}
}

// Signup creates a new account and returns a bearer token.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details; role defaults to patient"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Signup(c.Request().Context(), toSignupInput(req))
	if err != nil {
		return err
	}

	metrics.SignupsTotal.WithLabelValues(string(res.Account.Role)).Inc()
	return c.JSON(http.StatusCreated, authResponse{Token: res.Token, User: toUserResponse(res.Account)})
}

// Login authenticates by username or email and returns a bearer token.
//
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials; email may hold the username"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Token: res.Token, User: toUserResponse(res.Account)})
}

// Me returns the profile of the authenticated account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// UpdateProfile changes the caller's own name or phone number.
//
// @Summary      Update own profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/me [patch]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	updated, err := h.accountService.UpdateProfile(c.Request().Context(), account.ID, toProfileUpdate(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(updated))
}

// ChangePassword replaces the caller's password.
//
// @Summary      Change own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/me/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	if err := h.accountService.ChangePassword(c.Request().Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "throttled"
	default:
		return "error"
	}
}
