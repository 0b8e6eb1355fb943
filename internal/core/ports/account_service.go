package ports

import (
	"context"

	"github.com/medicore/clinic-api/internal/core/domain"
)

// AccountService covers self-service profile changes and administration.
type AccountService interface {
	Get(ctx context.Context, id string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Account, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	List(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, error)
	// SetActive toggles the active flag of targetID on behalf of actorID.
	SetActive(ctx context.Context, actorID, targetID string, active bool) (*domain.Account, error)
}
