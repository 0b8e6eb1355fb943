package ports

import (
	"context"

	"github.com/medicore/clinic-api/internal/core/domain"
)

// PasswordHasher hashes and verifies account secrets.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify returns false for any mismatch, empty input or malformed hash.
	Verify(plaintext, hash string) bool
	// Dummy spends the same time as a failed Verify.
	Dummy(plaintext string)
}

// TokenIssuer creates signed bearer tokens.
type TokenIssuer interface {
	// Configured reports whether a signing secret is available.
	Configured() bool
	Issue(accountID string, role domain.Role) (string, error)
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (*domain.SessionClaims, error)
}

// SignupInput carries the fields accepted by Signup. Role may be empty,
// in which case the account is created as a patient.
type SignupInput struct {
	Username    string
	Email       string
	Password    string
	Role        string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token   string
	Account *domain.Account
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResult, error)
	// Login accepts either the username or the email as identifier.
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
}
