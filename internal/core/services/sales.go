// internal/core/services/sales.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
)

// GetSale retrieves one sale with its items. Cashiers only see their own
// sales; a sale recorded by someone else is indistinguishable from a
// missing one.
func (s *SaleService) GetSale(ctx context.Context, caller domain.Caller, saleID uuid.UUID) (*domain.Sale, error) {
	if caller.Anonymous() {
		return nil, domain.ErrUnauthorized
	}

	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, domain.ErrSaleNotFound
	}

	if !caller.Role.CanViewAllSales() && sale.CashierID != caller.UserID {
		return nil, domain.ErrSaleNotFound
	}

	return sale, nil
}

// ListSales returns a filtered page of sales plus aggregates over every
// matching sale. Cashier callers are forced onto their own sales
// regardless of the filter they send.
func (s *SaleService) ListSales(ctx context.Context, caller domain.Caller, params ports.SaleListParams) (*ports.SaleListResult, error) {
	if caller.Anonymous() {
		return nil, domain.ErrUnauthorized
	}

	if !caller.Role.CanViewAllSales() {
		cashierID := caller.UserID
		params.CashierID = &cashierID
	}

	result, err := s.sales.FindAll(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	return result, nil
}

// DeleteSale soft deletes a sale. Only managers and super admins may
// remove financial records, and the removal is audited.
func (s *SaleService) DeleteSale(ctx context.Context, caller domain.Caller, saleID uuid.UUID) error {
	if caller.Anonymous() {
		return domain.ErrUnauthorized
	}
	if !caller.Role.CanViewAllSales() {
		return fmt.Errorf("%w: role %s cannot delete sales", domain.ErrForbidden, caller.Role)
	}

	if err := s.sales.SoftDelete(ctx, saleID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "sale deleted",
		slog.String("sale_id", saleID.String()),
		slog.String("actor_id", caller.UserID.String()))

	event := domain.NewAuditEvent(domain.AuditActionSaleDeleted, caller, "sale", saleID)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			slog.String("sale_id", saleID.String()),
			slog.String("error", err.Error()))
	}

	if s.cache != nil {
		s.cache.InvalidateSaleCaches(ctx)
	}

	return nil
}
