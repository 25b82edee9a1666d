// internal/core/services/products.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
)

const lowStockCacheTTL = 5 * time.Minute

// ProductService implements catalog and stock management on top of the
// product repository. Stock quantity only changes through AdjustStock or
// the sale reservation path; product edits never touch it.
type ProductService struct {
	products ports.ProductRepository
	audit    ports.AuditSink
	cache    ports.CacheRepository
	cacheMgr ports.CacheInvalidator
	logger   *slog.Logger
}

var _ ports.ProductService = (*ProductService)(nil)

// NewProductService creates a catalog service. cache and cacheMgr may be
// nil, in which case reads always hit the repository.
func NewProductService(
	products ports.ProductRepository,
	audit ports.AuditSink,
	cache ports.CacheRepository,
	cacheMgr ports.CacheInvalidator,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		audit:    audit,
		cache:    cache,
		cacheMgr: cacheMgr,
		logger:   logger.With(slog.String("service", "products")),
	}
}

// CreateProduct validates and stores a new catalog entry.
func (s *ProductService) CreateProduct(ctx context.Context, caller domain.Caller, product *domain.Product) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if err := product.Validate(); err != nil {
		return domain.NewValidationError("product", err.Error())
	}

	product.PrepareForStorage()
	if err := s.products.Save(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID.String()),
		slog.String("name", product.Name))

	s.emitAudit(ctx, domain.NewAuditEvent(domain.AuditActionProductCreated, caller, "product", product.ID))
	s.invalidate(ctx)
	return nil
}

// UpdateProduct changes name, price, or low stock margin. Quantity is
// deliberately left alone; use AdjustStock for stock corrections.
func (s *ProductService) UpdateProduct(ctx context.Context, caller domain.Caller, productID uuid.UUID, product *domain.Product) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	product.ID = productID
	if err := product.Validate(); err != nil {
		return domain.NewValidationError("product", err.Error())
	}

	if err := s.products.Update(ctx, product); err != nil {
		return err
	}

	s.emitAudit(ctx, domain.NewAuditEvent(domain.AuditActionProductUpdated, caller, "product", productID))
	s.invalidate(ctx)
	return nil
}

// GetProduct retrieves one product by ID.
func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

// ListProducts returns a filtered page of catalog entries.
func (s *ProductService) ListProducts(ctx context.Context, params ports.ProductListParams) (*ports.ProductListResult, error) {
	result, err := s.products.FindAll(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return result, nil
}

// AdjustStock applies a signed stock correction under a row lock. A delta
// that would take the quantity negative is rejected with the current
// availability attached.
func (s *ProductService) AdjustStock(ctx context.Context, caller domain.Caller, productID uuid.UUID, delta int) (*domain.Product, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, domain.NewValidationError("delta", "adjustment must be non-zero")
	}

	product, err := s.products.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID.String()),
		slog.Int("delta", delta),
		slog.Int("quantity", product.Quantity),
		slog.String("actor_id", caller.UserID.String()))

	event := domain.NewAuditEvent(domain.AuditActionStockAdjusted, caller, "product", productID)
	event.Details = map[string]interface{}{
		"delta":    delta,
		"quantity": product.Quantity,
	}
	s.emitAudit(ctx, event)
	s.invalidate(ctx)

	return product, nil
}

// ListLowStock returns every product at or below its reorder threshold,
// served from cache when the periodic scan has populated it.
func (s *ProductService) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	fetch := func() (interface{}, error) {
		return s.products.FindLowStock(ctx)
	}

	if s.cache == nil {
		products, err := s.products.FindLowStock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list low stock products: %w", err)
		}
		return products, nil
	}

	var products []*domain.Product
	if err := s.cache.GetOrSet(ctx, ports.LowStockReportKey, &products, fetch, lowStockCacheTTL); err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

// DeleteProduct soft deletes a catalog entry. Existing sale items keep
// their name snapshot, so history is unaffected.
func (s *ProductService) DeleteProduct(ctx context.Context, caller domain.Caller, productID uuid.UUID) error {
	if err := s.authorize(caller); err != nil {
		return err
	}

	if err := s.products.SoftDelete(ctx, productID); err != nil {
		return err
	}

	s.emitAudit(ctx, domain.NewAuditEvent(domain.AuditActionProductDeleted, caller, "product", productID))
	s.invalidate(ctx)
	return nil
}

func (s *ProductService) authorize(caller domain.Caller) error {
	if caller.Anonymous() {
		return domain.ErrUnauthorized
	}
	if !caller.Role.CanManageProducts() {
		return fmt.Errorf("%w: role %s cannot manage products", domain.ErrForbidden, caller.Role)
	}
	return nil
}

func (s *ProductService) emitAudit(ctx context.Context, event domain.AuditEvent) {
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			slog.String("action", event.Action),
			slog.String("entity_id", event.EntityID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cacheMgr != nil {
		s.cacheMgr.InvalidateProductCaches(ctx)
	}
}
