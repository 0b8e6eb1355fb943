package ports

import (
	"context"
	"time"

	"github.com/medicore/clinic-api/internal/core/domain"
)

// ListAccountsFilter narrows List. Zero values mean "no filter".
type ListAccountsFilter struct {
	Role   domain.Role
	Active *bool
}

// AccountRepository is the credential store. Username and email are unique
// and stored normalized (see domain.NormalizeIdentity).
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByIdentity matches identifier against both email and username.
	FindByIdentity(ctx context.Context, identifier string) (*domain.Account, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) (*domain.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, error)
}

// AccountReader is the part of the store the authentication gate needs.
type AccountReader interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}
