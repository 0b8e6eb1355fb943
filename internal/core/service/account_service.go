package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

// AccountService implements profile self-service and account administration.
type AccountService struct {
	accounts ports.AccountRepository
	hasher   ports.PasswordHasher
	audit    ports.AuditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// AccountOption configures an AccountService.
type AccountOption func(*AccountService)

// WithAccountClock replaces time.Now for audit timestamps.
func WithAccountClock(now func() time.Time) AccountOption {
	return func(s *AccountService) { s.now = now }
}

// NewAccountService returns an AccountService. audit may be nil.
func NewAccountService(accounts ports.AccountRepository, hasher ports.PasswordHasher, audit ports.AuditRecorder, log zerolog.Logger, opts ...AccountOption) *AccountService {
	if audit == nil {
		audit = noopRecorder{}
	}
	s := &AccountService{accounts: accounts, hasher: hasher, audit: audit, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

func (s *AccountService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Account, error) {
	if update.Empty() {
		return nil, domain.NewValidationError("No profile fields to update")
	}
	var err error
	if update.FirstName, err = trimmed(update.FirstName, "First name is required"); err != nil {
		return nil, err
	}
	if update.LastName, err = trimmed(update.LastName, "Last name is required"); err != nil {
		return nil, err
	}
	update.PhoneNumber, _ = trimmed(update.PhoneNumber, "")

	updated, err := s.accounts.UpdateProfile(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventProfileUpdated, AccountID: id, At: s.now().UTC()})
	return updated, nil
}

// ChangePassword replaces the secret of id after verifying currentPassword.
func (s *AccountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, account.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if newPassword == currentPassword {
		return domain.NewValidationError("New password must be different from the current password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventPasswordChanged, AccountID: id, At: s.now().UTC()})
	s.log.Info().Str("account_id", id).Msg("password changed")
	return nil
}

func (s *AccountService) List(ctx context.Context, filter ports.ListAccountsFilter) ([]*domain.Account, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.NewValidationError("Invalid role")
	}
	return s.accounts.List(ctx, filter)
}

// SetActive is the only removal path for accounts. Deactivation takes effect
// on the target's next authenticated request.
func (s *AccountService) SetActive(ctx context.Context, actorID, targetID string, active bool) (*domain.Account, error) {
	if !active && actorID == targetID {
		return nil, domain.NewValidationError("You cannot deactivate your own account")
	}

	account, err := s.accounts.SetActive(ctx, targetID, active)
	if err != nil {
		return nil, err
	}

	eventType := domain.EventAccountActivated
	if !active {
		eventType = domain.EventAccountDeactivated
	}
	s.audit.Record(domain.AuthEvent{Type: eventType, AccountID: targetID, ActorID: actorID, At: s.now().UTC()})
	s.log.Info().
		Str("account_id", targetID).
		Str("actor_id", actorID).
		Bool("active", active).
		Msg("account status changed")

	return account, nil
}

// trimmed returns a trimmed copy of v. A blank result is rejected with msg
// unless msg is empty.
func trimmed(v *string, msg string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*v)
	if t == "" && msg != "" {
		return nil, domain.NewValidationError(msg)
	}
	return &t, nil
}
