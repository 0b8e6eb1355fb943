package domain

import (
	"strings"
	"time"
)

// Role is the closed set of account classifications used for authorization.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleDoctor, RolePatient}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole converts untrusted input into a Role. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", NewValidationError("Invalid role")
	}
	return r, nil
}

// Secret length bounds accepted at signup or password change. The upper
// bound is what bcrypt digests without truncation.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// Account is an authenticated actor of the clinic.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	PhoneNumber  string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasRole reports whether the account role is one of roles.
func (a *Account) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// ProfileUpdate is the allow-list of self-editable account fields.
// Nil pointers are left untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.PhoneNumber == nil
}

// SessionClaims is the verified content of a bearer token.
type SessionClaims struct {
	AccountID string
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NormalizeIdentity lower-cases and trims a username or email so lookups
// are case-insensitive.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
