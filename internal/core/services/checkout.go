// internal/core/services/checkout.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
	"github.com/amarachi/tillpoint-be/internal/pkg/config"
)

// TxRunner runs a function inside a database transaction. Implemented by
// the database adapter.
type TxRunner interface {
	TransactionWithOptions(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error
}

// SaleService orchestrates sale commits and queries. A commit reserves
// stock under row locks, computes totals and persists the sale in one
// transaction; queries apply role scoping before touching the repository.
type SaleService struct {
	sales    ports.SaleRepository
	reserver ports.StockReserver
	db       TxRunner
	audit    ports.AuditSink
	cache    ports.CacheInvalidator
	cfg      config.SalesConfig
	logger   *slog.Logger
}

// Statically assert that *SaleService implements the SaleService interface.
var _ ports.SaleService = (*SaleService)(nil)

// NewSaleService creates a new sale service
func NewSaleService(
	sales ports.SaleRepository,
	reserver ports.StockReserver,
	db TxRunner,
	audit ports.AuditSink,
	cache ports.CacheInvalidator,
	cfg config.SalesConfig,
	logger *slog.Logger,
) *SaleService {
	return &SaleService{
		sales:    sales,
		reserver: reserver,
		db:       db,
		audit:    audit,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.With(slog.String("service", "sales")),
	}
}

// RecordSale commits a sale atomically. The stock decrement, the sale row
// and its items all land in one transaction; on any shortfall the whole
// transaction rolls back and the full shortfall list is returned.
func (s *SaleService) RecordSale(ctx context.Context, caller domain.Caller, sale *domain.Sale) (*domain.Sale, error) {
	if caller.Anonymous() {
		return nil, domain.ErrUnauthorized
	}
	if !caller.Role.CanRecordSales() {
		return nil, fmt.Errorf("%w: role %s cannot record sales", domain.ErrForbidden, caller.Role)
	}

	// The sale is always attributed to the caller, never to an id
	// supplied in the payload.
	sale.CashierID = caller.UserID
	sale.CashierName = caller.Name

	if err := sale.Validate(); err != nil {
		return nil, domain.NewValidationError("sale", err.Error())
	}

	// Duplicate product lines are merged before locking so each row is
	// locked once and the combined quantity is checked against stock.
	sale.Items = domain.MergeItems(sale.Items)

	// An explicit override wins even at zero; only absence falls back
	// to the configured rate.
	vatRate := s.cfg.DefaultVatPercent
	if sale.VatOverride != nil {
		if sale.VatOverride.IsNegative() {
			return nil, domain.NewValidationError("vat_percentage", "cannot be negative")
		}
		vatRate = *sale.VatOverride
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckoutTimeout)
	defer cancel()

	err := s.db.TransactionWithOptions(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(ctx, tx, domain.ReservationRequestsFromItems(sale.Items))
		if err != nil {
			return err
		}
		if len(shortfalls) > 0 {
			return &domain.InsufficientStockError{Shortfalls: shortfalls}
		}

		sale.PrepareForStorage(vatRate)

		return s.sales.SaveTx(ctx, tx, sale)
	})
	if err != nil {
		// A quantity check constraint firing is the same business
		// condition as a reservation shortfall surfacing one layer
		// lower.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			s.logger.WarnContext(ctx, "stock check constraint violated during commit",
				slog.String("constraint", pgErr.ConstraintName))
			return nil, &domain.InsufficientStockError{}
		}
		if _, ok := domain.IsInsufficientStock(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	s.logger.InfoContext(ctx, "sale recorded",
		slog.String("sale_id", sale.ID.String()),
		slog.String("cashier_id", sale.CashierID.String()),
		slog.String("total_amount", sale.TotalAmount.String()),
		slog.Int("items", len(sale.Items)))

	s.afterCommit(ctx, caller, sale)

	return sale, nil
}

// afterCommit emits the audit event and drops stale cache entries. Both
// are best effort; the sale has already committed.
func (s *SaleService) afterCommit(ctx context.Context, caller domain.Caller, sale *domain.Sale) {
	event := domain.NewAuditEvent(domain.AuditActionSaleRecorded, caller, "sale", sale.ID)
	event.Details = map[string]interface{}{
		"subtotal":     sale.Subtotal.String(),
		"vat_amount":   sale.VatAmount.String(),
		"total_amount": sale.TotalAmount.String(),
		"payment_mode": string(sale.PaymentMode),
		"item_count":   len(sale.Items),
	}

	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			slog.String("sale_id", sale.ID.String()),
			slog.String("error", err.Error()))
	}

	if s.cache != nil {
		s.cache.InvalidateSaleCaches(ctx)
	}
}

// EffectiveVatRate returns the rate a sale would be taxed at right now.
// A nil override means no rate was supplied.
func (s *SaleService) EffectiveVatRate(override *decimal.Decimal) decimal.Decimal {
	if override != nil && !override.IsNegative() {
		return *override
	}
	return s.cfg.DefaultVatPercent
}
