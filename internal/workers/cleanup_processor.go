// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amarachi/tillpoint-be/internal/adapters/db"
	"github.com/amarachi/tillpoint-be/internal/pkg/config"
)

// Task type constants
const (
	TypeCleanupAuditLogs = "cleanup:audit_logs"
)

// CleanupProcessor handles retention cleanup tasks
type CleanupProcessor struct {
	db     *db.Database
	config *config.Config
	logger *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(database *db.Database, cfg *config.Config, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		db:     database,
		config: cfg,
		logger: logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupAuditLogs removes audit logs older than the configured retention
func (p *CleanupProcessor) CleanupAuditLogs(ctx context.Context, t *asynq.Task) error {
	retentionDays := p.config.Sales.AuditRetentionDays
	if retentionDays <= 0 {
		retentionDays = 90
	}

	p.logger.InfoContext(ctx, "cleaning up old audit logs",
		slog.Int("retention_days", retentionDays))

	query := fmt.Sprintf(
		`DELETE FROM audit_logs WHERE created_at < NOW() - INTERVAL '%d days'`,
		retentionDays,
	)

	result, err := p.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	p.logger.InfoContext(ctx, "old audit logs cleaned up",
		slog.Int64("rows_deleted", result.RowsAffected()))

	return nil
}
