// internal/adapters/events/asynq_sink.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
	"github.com/amarachi/tillpoint-be/internal/workers"
)

// AsynqAuditSink enqueues audit events for the worker to persist. Enqueue
// happens after the originating transaction commits; a broker outage drops
// the event into the caller's log, never the client's response.
type AsynqAuditSink struct {
	client *asynq.Client
	logger *slog.Logger
}

// Statically assert that *AsynqAuditSink implements the AuditSink port.
var _ ports.AuditSink = (*AsynqAuditSink)(nil)

// NewAsynqAuditSink creates a new audit sink backed by asynq
func NewAsynqAuditSink(client *asynq.Client, logger *slog.Logger) *AsynqAuditSink {
	return &AsynqAuditSink{
		client: client,
		logger: logger.With(slog.String("component", "audit_sink")),
	}
}

// Emit enqueues one audit event
func (s *AsynqAuditSink) Emit(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	task := asynq.NewTask(workers.TypeAuditRecord, payload)
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue("low"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue audit event: %w", err)
	}

	s.logger.DebugContext(ctx, "audit event enqueued",
		slog.String("task_id", info.ID),
		slog.String("action", event.Action))

	return nil
}
