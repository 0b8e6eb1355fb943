package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrForbidden          = errors.New("insufficient permission")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenExpired       = errors.New("token expired")
	ErrMisconfigured      = errors.New("token signing secret is not configured")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string { return e.Msg }
