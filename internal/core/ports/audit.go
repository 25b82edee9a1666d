// internal/core/ports/audit.go
package ports

import (
	"context"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// AuditSink receives audit events emitted after successful operations.
// Implementations enqueue the event for asynchronous processing; a sink
// failure is logged by the caller and never propagated to the client.
type AuditSink interface {
	Emit(ctx context.Context, event domain.AuditEvent) error
}
