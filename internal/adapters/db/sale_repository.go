// internal/adapters/db/sale_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
)

// saleRepository implements ports.SaleRepository
type saleRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *Database, logger *slog.Logger) ports.SaleRepository {
	return &saleRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "sales")),
	}
}

// SaveTx persists a sale and its items inside the caller's transaction.
// The item's product_name is snapshotted from the products table at insert
// time; the reservation step has already locked those rows.
func (r *saleRepository) SaveTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error {
	saleQuery := `
		INSERT INTO sales (
			id, cashier_id, subtotal, vat_amount, vat_percentage,
			total_amount, payment_mode, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, saleQuery,
		sale.ID, sale.CashierID, sale.Subtotal, sale.VatAmount, sale.VatPercentage,
		sale.TotalAmount, sale.PaymentMode, sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	itemQuery := `
		INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, price)
		SELECT $1, $2, $3, p.name, $4, $5
		FROM products p
		WHERE p.id = $3
		RETURNING product_name`

	batch := &pgx.Batch{}
	for i := range sale.Items {
		item := &sale.Items[i]
		batch.Queue(itemQuery, item.ID, sale.ID, item.ProductID, item.Quantity, item.Price)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for i := range sale.Items {
		if err := br.QueryRow().Scan(&sale.Items[i].ProductName); err != nil {
			return fmt.Errorf("failed to insert sale item %d: %w", i, err)
		}
	}

	r.logger.DebugContext(ctx, "sale saved",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("items", len(sale.Items)))

	return nil
}

// FindByID retrieves a sale with its items and the cashier's name.
func (r *saleRepository) FindByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	query := `
		SELECT
			s.id, s.cashier_id, COALESCE(u.name, ''), s.subtotal, s.vat_amount,
			s.vat_percentage, s.total_amount, s.payment_mode,
			s.created_at, s.updated_at
		FROM sales s
		LEFT JOIN users u ON u.id = s.cashier_id
		WHERE s.id = $1 AND s.deleted_at IS NULL`

	sale := &domain.Sale{}
	err := r.db.QueryRow(ctx, query, saleID).Scan(
		&sale.ID, &sale.CashierID, &sale.CashierName, &sale.Subtotal, &sale.VatAmount,
		&sale.VatPercentage, &sale.TotalAmount, &sale.PaymentMode,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	items, err := r.findItems(ctx, saleID)
	if err != nil {
		return nil, err
	}
	sale.Items = items

	return sale, nil
}

func (r *saleRepository) findItems(ctx context.Context, saleID uuid.UUID) ([]domain.SaleItem, error) {
	query := `
		SELECT id, sale_id, product_id, product_name, quantity, price
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY product_name`

	rows, err := r.db.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var item domain.SaleItem
		err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID,
			&item.ProductName, &item.Quantity, &item.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// FindAll retrieves sales with filtering, pagination and filter-wide
// aggregates. Aggregates cover every row matching the filters, not just
// the returned page.
func (r *saleRepository) FindAll(ctx context.Context, params ports.SaleListParams) (*ports.SaleListResult, error) {
	qb := squirrel.Select(
		"s.id", "s.cashier_id", "COALESCE(u.name, '')", "s.subtotal", "s.vat_amount",
		"s.vat_percentage", "s.total_amount", "s.payment_mode",
		"s.created_at", "s.updated_at",
	).From("sales s").
		LeftJoin("users u ON u.id = s.cashier_id").
		Where("s.deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	qb = applySaleFilters(qb, params)

	// Count total rows (before pagination)
	countQb := squirrel.Select("COUNT(*)").
		From("sales s").
		LeftJoin("users u ON u.id = s.cashier_id").
		Where("s.deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)
	countQb = applySaleFilters(countQb, params)

	countSQL, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}

	aggregates, err := r.aggregate(ctx, params)
	if err != nil {
		return nil, err
	}

	// Apply sorting
	orderBy := "s.created_at DESC"
	if params.SortBy != "" {
		direction := "ASC"
		if params.SortOrder == "desc" {
			direction = "DESC"
		}

		switch params.SortBy {
		case "total":
			orderBy = fmt.Sprintf("s.total_amount %s", direction)
		case "payment_mode":
			orderBy = fmt.Sprintf("s.payment_mode %s", direction)
		case "cashier":
			orderBy = fmt.Sprintf("u.name %s", direction)
		default:
			orderBy = fmt.Sprintf("s.created_at %s", direction)
		}
	}
	qb = qb.OrderBy(orderBy)

	// Apply pagination
	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	qb = qb.Limit(uint64(pageSize)).Offset(uint64((page - 1) * pageSize))

	listSQL, listArgs, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(
			&sale.ID, &sale.CashierID, &sale.CashierName, &sale.Subtotal, &sale.VatAmount,
			&sale.VatPercentage, &sale.TotalAmount, &sale.PaymentMode,
			&sale.CreatedAt, &sale.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return &ports.SaleListResult{
		Sales:      sales,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
		Aggregates: aggregates,
	}, nil
}

// aggregate computes revenue sums over every sale matching the filters,
// grouped by payment mode.
func (r *saleRepository) aggregate(ctx context.Context, params ports.SaleListParams) (ports.SaleAggregates, error) {
	qb := squirrel.Select(
		"s.payment_mode",
		"COUNT(*)",
		"COALESCE(SUM(s.total_amount), 0)",
	).From("sales s").
		LeftJoin("users u ON u.id = s.cashier_id").
		Where("s.deleted_at IS NULL").
		GroupBy("s.payment_mode").
		PlaceholderFormat(squirrel.Dollar)

	qb = applySaleFilters(qb, params)

	aggSQL, aggArgs, err := qb.ToSql()
	if err != nil {
		return ports.SaleAggregates{}, fmt.Errorf("failed to build aggregate query: %w", err)
	}

	rows, err := r.db.Query(ctx, aggSQL, aggArgs...)
	if err != nil {
		return ports.SaleAggregates{}, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	agg := ports.SaleAggregates{
		TotalRevenue:  decimal.Zero,
		ByPaymentMode: make(map[domain.PaymentMode]decimal.Decimal),
	}

	for rows.Next() {
		var mode domain.PaymentMode
		var count int64
		var sum decimal.Decimal
		if err := rows.Scan(&mode, &count, &sum); err != nil {
			return ports.SaleAggregates{}, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		agg.SaleCount += count
		agg.TotalRevenue = agg.TotalRevenue.Add(sum)
		agg.ByPaymentMode[mode] = sum
	}

	if err := rows.Err(); err != nil {
		return ports.SaleAggregates{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return agg, nil
}

// applySaleFilters appends the shared filter conditions so the page query
// and the aggregate query always agree on which sales they cover.
func applySaleFilters(qb squirrel.SelectBuilder, params ports.SaleListParams) squirrel.SelectBuilder {
	if params.CashierID != nil {
		qb = qb.Where(squirrel.Eq{"s.cashier_id": *params.CashierID})
	}
	if params.PaymentMode != "" {
		qb = qb.Where(squirrel.Eq{"s.payment_mode": params.PaymentMode})
	}
	if params.From != nil {
		qb = qb.Where(squirrel.GtOrEq{"s.created_at": *params.From})
	}
	if params.To != nil {
		qb = qb.Where(squirrel.Lt{"s.created_at": *params.To})
	}
	if params.Search != "" {
		// EXISTS keeps a sale with several matching items as one row,
		// so the count and aggregate queries stay in step with the page.
		pattern := "%" + params.Search + "%"
		qb = qb.Where(`(s.id::text ILIKE ? OR u.name ILIKE ? OR u.username ILIKE ?
			OR EXISTS (SELECT 1 FROM sale_items si WHERE si.sale_id = s.id AND si.product_name ILIKE ?))`,
			pattern, pattern, pattern, pattern)
	}
	return qb
}

// SoftDelete marks a sale as deleted
func (r *saleRepository) SoftDelete(ctx context.Context, saleID uuid.UUID) error {
	query := `UPDATE sales SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	now := time.Now()
	tag, err := r.db.Exec(ctx, query, saleID, now)
	if err != nil {
		return fmt.Errorf("failed to soft delete sale: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSaleNotFound
	}

	r.logger.InfoContext(ctx, "sale soft deleted",
		slog.String("sale_id", saleID.String()))

	return nil
}

// Exists checks if a sale exists
func (r *saleRepository) Exists(ctx context.Context, saleID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sales WHERE id = $1 AND deleted_at IS NULL)`

	var exists bool
	err := r.db.QueryRow(ctx, query, saleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return exists, nil
}
