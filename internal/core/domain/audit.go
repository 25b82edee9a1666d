// internal/core/domain/audit.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions emitted by the services.
const (
	AuditActionSaleRecorded   = "sale.recorded"
	AuditActionSaleDeleted    = "sale.deleted"
	AuditActionStockAdjusted  = "product.stock_adjusted"
	AuditActionProductCreated = "product.created"
	AuditActionProductUpdated = "product.updated"
	AuditActionProductDeleted = "product.deleted"
)

// AuditEvent records who did what to which entity. Events are emitted after
// the owning transaction commits and are never allowed to fail the operation
// that produced them.
type AuditEvent struct {
	ID         uuid.UUID              `json:"id"`
	Action     string                 `json:"action"`
	ActorID    uuid.UUID              `json:"actor_id"`
	ActorName  string                 `json:"actor_name,omitempty"`
	EntityType string                 `json:"entity_type"`
	EntityID   uuid.UUID              `json:"entity_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewAuditEvent builds a stamped event for the given actor and entity.
func NewAuditEvent(action string, actor Caller, entityType string, entityID uuid.UUID) AuditEvent {
	return AuditEvent{
		ID:         uuid.New(),
		Action:     action,
		ActorID:    actor.UserID,
		ActorName:  actor.Name,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}
}
