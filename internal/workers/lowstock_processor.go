// internal/workers/lowstock_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/amarachi/tillpoint-be/internal/core/ports"
)

// Task type constants
const (
	TypeLowStockScan = "stock:low_scan"
)

// LowStockProcessor runs periodic low stock scans and caches the result so
// the API can serve reorder reports without hitting the products table.
type LowStockProcessor struct {
	products ports.ProductRepository
	cache    ports.CacheRepository
	logger   *slog.Logger
}

// NewLowStockProcessor creates a new low stock processor
func NewLowStockProcessor(products ports.ProductRepository, cache ports.CacheRepository, logger *slog.Logger) *LowStockProcessor {
	return &LowStockProcessor{
		products: products,
		cache:    cache,
		logger:   logger.With(slog.String("processor", "low_stock")),
	}
}

// ScanLowStock finds products at or below their reorder threshold
func (p *LowStockProcessor) ScanLowStock(ctx context.Context, t *asynq.Task) error {
	products, err := p.products.FindLowStock(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan for low stock: %w", err)
	}

	for _, product := range products {
		p.logger.WarnContext(ctx, "product below reorder threshold",
			slog.String("product_id", product.ID.String()),
			slog.String("name", product.Name),
			slog.Int("quantity", product.Quantity),
			slog.Int("low_stock_margin", product.LowStockMargin))
	}

	if err := p.cache.SetWithTTL(ctx, ports.LowStockReportKey, products, time.Hour); err != nil {
		p.logger.WarnContext(ctx, "failed to cache low stock report",
			slog.String("error", err.Error()))
	}

	p.logger.InfoContext(ctx, "low stock scan completed",
		slog.Int("flagged", len(products)))

	return nil
}
