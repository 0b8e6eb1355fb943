package ports

import (
	"context"

	"github.com/medicore/clinic-api/internal/core/domain"
)

// AuditRepository persists authentication events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
}

// AuditRecorder accepts events for asynchronous persistence. Record must not block.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}
