package ports

import "context"

// LoginLimiter throttles repeated failed logins per identifier.
type LoginLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}
