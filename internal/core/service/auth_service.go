package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

const minUsernameLength = 3

// AuthService implements signup and login.
type AuthService struct {
	accounts    ports.AccountRepository
	hasher      ports.PasswordHasher
	tokens      ports.TokenIssuer
	limiter     ports.LoginLimiter
	audit       ports.AuditRecorder
	signupRoles map[domain.Role]struct{}
	log         zerolog.Logger
	now         func() time.Time
}

// AuthOption configures optional collaborators of AuthService.
type AuthOption func(*AuthService)

// WithLoginLimiter enables throttling of failed logins.
func WithLoginLimiter(l ports.LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithAuditRecorder sends signup and login events to r.
func WithAuditRecorder(r ports.AuditRecorder) AuthOption {
	return func(s *AuthService) { s.audit = r }
}

// WithSignupRoles restricts which roles may self-register. All roles are
// open by default.
func WithSignupRoles(roles ...domain.Role) AuthOption {
	return func(s *AuthService) {
		s.signupRoles = make(map[domain.Role]struct{}, len(roles))
		for _, r := range roles {
			s.signupRoles[r] = struct{}{}
		}
	}
}

// WithClock replaces time.Now for timestamps written by the service.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(accounts ports.AccountRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
	}
	WithSignupRoles(domain.Roles...)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = noopLimiter{}
	}
	if s.audit == nil {
		s.audit = noopRecorder{}
	}
	return s
}

func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	if !s.tokens.Configured() {
		s.log.Error().Msg("signup rejected: token signing secret is not configured")
		return nil, domain.ErrMisconfigured
	}

	role := domain.RolePatient
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}
	if _, ok := s.signupRoles[role]; !ok {
		return nil, domain.NewValidationError("Invalid role")
	}

	account := &domain.Account{
		Username:    domain.NormalizeIdentity(in.Username),
		Email:       domain.NormalizeIdentity(in.Email),
		Role:        role,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		IsActive:    true,
	}
	if err := validateSignup(account, in.Password); err != nil {
		return nil, err
	}

	exists, err := s.accounts.ExistsByUsernameOrEmail(ctx, account.Username, account.Email)
	if err != nil {
		return nil, fmt.Errorf("signup: check identity: %w", err)
	}
	if exists {
		return nil, domain.ErrAccountExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	now := s.now().UTC()
	account.PasswordHash = hash
	account.CreatedAt = now
	account.UpdatedAt = now

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("signup: create account: %w", err)
	}

	token, err := s.tokens.Issue(created.ID, created.Role)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.audit.Record(domain.AuthEvent{
		Type:       domain.EventSignup,
		AccountID:  created.ID,
		Identifier: created.Username,
		At:         now,
	})
	s.log.Info().Str("account_id", created.ID).Str("role", string(created.Role)).Msg("account created")

	return &ports.AuthResult{Token: token, Account: created}, nil
}

// Login authenticates by username or email. Unknown identifiers and wrong
// secrets both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	if !s.tokens.Configured() {
		s.log.Error().Msg("login rejected: token signing secret is not configured")
		return nil, domain.ErrMisconfigured
	}

	key := domain.NormalizeIdentity(identifier)
	if key == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
	} else if !allowed {
		s.audit.Record(domain.AuthEvent{Type: domain.EventLoginThrottled, Identifier: key, At: s.now().UTC()})
		return nil, domain.ErrTooManyAttempts
	}

	account, err := s.accounts.FindByIdentity(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("login: find account: %w", err)
		}
		s.hasher.Dummy(password)
		s.loginFailed(ctx, key, "")
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.loginFailed(ctx, key, account.ID)
		return nil, domain.ErrInvalidCredentials
	}

	if !account.IsActive {
		s.loginFailed(ctx, key, account.ID)
		return nil, domain.ErrAccountDeactivated
	}

	now := s.now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("login: record last login: %w", err)
	}
	account.LastLogin = &now

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login limiter")
	}
	s.audit.Record(domain.AuthEvent{
		Type:       domain.EventLoginSucceeded,
		AccountID:  account.ID,
		Identifier: key,
		At:         now,
	})
	s.log.Info().Str("account_id", account.ID).Str("role", string(account.Role)).Msg("login succeeded")

	return &ports.AuthResult{Token: token, Account: account}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, identifier, accountID string) {
	if err := s.limiter.RecordFailure(ctx, identifier); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
	s.audit.Record(domain.AuthEvent{
		Type:       domain.EventLoginFailed,
		AccountID:  accountID,
		Identifier: identifier,
		At:         s.now().UTC(),
	})
}

func validateSignup(a *domain.Account, password string) error {
	if len(a.Username) < minUsernameLength {
		return domain.NewValidationError(fmt.Sprintf("Username must be at least %d characters long", minUsernameLength))
	}
	// Login matches one identifier against both fields, so a username must
	// never be able to equal an email.
	if strings.Contains(a.Username, "@") {
		return domain.NewValidationError("Username cannot contain @")
	}
	if addr, err := mail.ParseAddress(a.Email); err != nil || addr.Address != a.Email {
		return domain.NewValidationError("Please enter a valid email")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if a.FirstName == "" {
		return domain.NewValidationError("First name is required")
	}
	if a.LastName == "" {
		return domain.NewValidationError("Last name is required")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < domain.MinPasswordLength {
		return domain.NewValidationError(fmt.Sprintf("Password must be at least %d characters long", domain.MinPasswordLength))
	}
	if len(password) > domain.MaxPasswordLength {
		return domain.NewValidationError(fmt.Sprintf("Password must be at most %d characters long", domain.MaxPasswordLength))
	}
	return nil
}
