package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medicore/clinic-api/internal/api/middleware"
	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error)
	loginFn  func(ctx context.Context, identifier, password string) (*ports.AuthResult, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, identifier, password)
}

type stubAccountService struct {
	getFn            func(ctx context.Context, id string) (*domain.Account, error)
	updateProfileFn  func(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Account, error)
	changePasswordFn func(ctx context.Context, id, current, next string) error
	listFn           func(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, error)
	setActiveFn      func(ctx context.Context, actorID, targetID string, active bool) (*domain.Account, error)
}

func (s *stubAccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Account, error) {
	return s.updateProfileFn(ctx, id, u)
}

func (s *stubAccountService) ChangePassword(ctx context.Context, id, current, next string) error {
	return s.changePasswordFn(ctx, id, current, next)
}

func (s *stubAccountService) List(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, error) {
	return s.listFn(ctx, f)
}

func (s *stubAccountService) SetActive(ctx context.Context, actorID, targetID string, active bool) (*domain.Account, error) {
	return s.setActiveFn(ctx, actorID, targetID, active)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newContext builds a request context. A non-nil account is attached the
// way the authentication gate does it.
func newContext(e *echo.Echo, method, target, body string, account *domain.Account) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if account != nil {
		middleware.SetAccount(c, account, "test-token")
	}
	return c, rec
}

// validationMsg returns the client message of a *domain.ValidationError.
func validationMsg(t *testing.T, err error) string {
	t.Helper()
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return ve.Msg
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
