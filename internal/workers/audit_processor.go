// internal/workers/audit_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amarachi/tillpoint-be/internal/adapters/db"
	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// Task type constants
const (
	TypeAuditRecord = "audit:record"
)

// AuditProcessor persists audit events emitted by the services
type AuditProcessor struct {
	db     *db.Database
	logger *slog.Logger
}

// NewAuditProcessor creates a new audit processor
func NewAuditProcessor(database *db.Database, logger *slog.Logger) *AuditProcessor {
	return &AuditProcessor{
		db:     database,
		logger: logger.With(slog.String("processor", "audit")),
	}
}

// ProcessAuditEvent writes one audit event to the audit_logs table
func (p *AuditProcessor) ProcessAuditEvent(ctx context.Context, t *asynq.Task) error {
	var event domain.AuditEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal audit event: %w", err)
	}

	var detail []byte
	if len(event.Details) > 0 {
		var err error
		detail, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (
			id, event_type, actor_id, actor_name, entity_type, entity_id, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := p.db.Exec(ctx, query,
		event.ID, event.Action, event.ActorID, event.ActorName,
		event.EntityType, event.EntityID, detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	p.logger.InfoContext(ctx, "audit event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("action", event.Action),
		slog.String("entity_id", event.EntityID.String()))

	return nil
}
