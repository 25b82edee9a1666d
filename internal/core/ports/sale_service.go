// internal/core/ports/sale_service.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// SaleService defines the application service port for recording and
// querying sales. This interface is implemented by the checkout and sales
// services and consumed by the HTTP handlers.
type SaleService interface {
	// RecordSale commits a sale atomically: stock is reserved and
	// decremented, totals are computed from the active VAT rate, and the
	// sale with its items is persisted, all in one transaction.
	RecordSale(ctx context.Context, caller domain.Caller, sale *domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, caller domain.Caller, saleID uuid.UUID) (*domain.Sale, error)
	ListSales(ctx context.Context, caller domain.Caller, params SaleListParams) (*SaleListResult, error)
	DeleteSale(ctx context.Context, caller domain.Caller, saleID uuid.UUID) error
}
