// internal/core/ports/sale_repository.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// SaleRepository defines the persistence port for sales.
// This interface is implemented by the database adapter.
type SaleRepository interface {
	// SaveTx persists the sale and its items inside the caller's
	// transaction so the insert commits or rolls back together with the
	// stock decrement.
	SaveTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error
	FindByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error)
	FindAll(ctx context.Context, params SaleListParams) (*SaleListResult, error)
	SoftDelete(ctx context.Context, saleID uuid.UUID) error
	Exists(ctx context.Context, saleID uuid.UUID) (bool, error)
}

// StockReserver defines the port for reserving stock under row locks.
// Implementations must lock the requested product rows in a stable order
// before reading quantities.
type StockReserver interface {
	// ReserveStock locks all requested products, verifies availability
	// and decrements quantities inside the caller's transaction. When
	// one or more products cannot cover the request it returns the full
	// shortfall list and performs no decrement.
	ReserveStock(ctx context.Context, tx pgx.Tx, requests []domain.ReservationRequest) ([]domain.Shortfall, error)
}

// SaleListParams holds filters and pagination for listing sales.
type SaleListParams struct {
	CashierID   *uuid.UUID
	PaymentMode domain.PaymentMode
	From        *time.Time
	To          *time.Time
	Search      string
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// SaleAggregates summarizes every sale matching the filters, not just the
// returned page.
type SaleAggregates struct {
	SaleCount     int64                                  `json:"sale_count"`
	TotalRevenue  decimal.Decimal                        `json:"total_revenue"`
	ByPaymentMode map[domain.PaymentMode]decimal.Decimal `json:"by_payment_mode"`
}

// SaleListResult holds one page of sales plus filter-wide aggregates.
type SaleListResult struct {
	Sales      []*domain.Sale `json:"sales"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int64          `json:"total_count"`
	TotalPages int            `json:"total_pages"`
	Aggregates SaleAggregates `json:"aggregates"`
}
