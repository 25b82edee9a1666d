// internal/adapters/db/reservation.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
)

// StockReserver reserves product stock under row locks. Rows are always
// locked in ascending id order so concurrent checkouts touching the same
// products cannot deadlock.
type StockReserver struct {
	logger *slog.Logger
}

// Statically assert that *StockReserver implements the StockReserver port.
var _ ports.StockReserver = (*StockReserver)(nil)

// NewStockReserver creates a new stock reserver
func NewStockReserver(logger *slog.Logger) *StockReserver {
	return &StockReserver{
		logger: logger.With(slog.String("component", "stock_reserver")),
	}
}

// ReserveStock locks the requested product rows, verifies every request can
// be covered, and decrements quantities inside the caller's transaction.
// When coverage fails it returns the complete shortfall list and leaves the
// table untouched; the caller decides whether to roll back. A missing or
// soft-deleted product counts as available zero.
func (r *StockReserver) ReserveStock(ctx context.Context, tx pgx.Tx, requests []domain.ReservationRequest) ([]domain.Shortfall, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.ProductID)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, quantity
		FROM products
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product rows: %w", err)
	}

	available := make(map[uuid.UUID]int, len(requests))
	for rows.Next() {
		var id uuid.UUID
		var quantity int
		if err := rows.Scan(&id, &quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan locked product: %w", err)
		}
		available[id] = quantity
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locked products: %w", err)
	}

	var shortfalls []domain.Shortfall
	for _, req := range requests {
		onHand, found := available[req.ProductID]
		if !found {
			onHand = 0
		}
		if onHand < req.Quantity {
			shortfalls = append(shortfalls, domain.Shortfall{
				ProductID: req.ProductID,
				Requested: req.Quantity,
				Available: onHand,
			})
		}
	}

	if len(shortfalls) > 0 {
		r.logger.WarnContext(ctx, "stock reservation rejected",
			slog.Int("requested_products", len(requests)),
			slog.Int("shortfalls", len(shortfalls)))
		return shortfalls, nil
	}

	batch := &pgx.Batch{}
	for _, req := range requests {
		batch.Queue(`
			UPDATE products
			SET quantity = quantity - $1, updated_at = NOW()
			WHERE id = $2`, req.Quantity, req.ProductID)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for _, req := range requests {
		tag, err := results.Exec()
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for product %s: %w", req.ProductID, err)
		}
		if tag.RowsAffected() != 1 {
			return nil, fmt.Errorf("stock decrement affected %d rows for product %s", tag.RowsAffected(), req.ProductID)
		}
	}

	r.logger.DebugContext(ctx, "stock reserved",
		slog.Int("products", len(requests)))

	return nil, nil
}
