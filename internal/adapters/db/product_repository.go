// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
)

const productColumns = `id, name, price, quantity, low_stock_margin, created_at, updated_at`

// productRepository implements ports.ProductRepository
type productRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "products")),
	}
}

// Save creates a new product
func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (
			id, name, price, quantity, low_stock_margin, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		product.ID, product.Name, product.Price, product.Quantity,
		product.LowStockMargin, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	r.logger.DebugContext(ctx, "product saved",
		slog.String("product_id", product.ID.String()),
		slog.String("name", product.Name))

	return nil
}

// Update updates an existing product. Quantity is not touched here; stock
// changes go through AdjustStock or the reservation path so they always
// happen under a row lock.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products SET
			name = $2, price = $3, low_stock_margin = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING quantity`

	product.UpdatedAt = time.Now()

	err := r.db.QueryRow(ctx, query,
		product.ID, product.Name, product.Price, product.LowStockMargin, product.UpdatedAt,
	).Scan(&product.Quantity)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	r.logger.DebugContext(ctx, "product updated",
		slog.String("product_id", product.ID.String()))

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND deleted_at IS NULL`

	product := &domain.Product{}
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&product.ID, &product.Name, &product.Price, &product.Quantity,
		&product.LowStockMargin, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}

// FindAll retrieves products with filtering and pagination
func (r *productRepository) FindAll(ctx context.Context, params ports.ProductListParams) (*ports.ProductListResult, error) {
	qb := squirrel.Select(
		"id", "name", "price", "quantity", "low_stock_margin", "created_at", "updated_at",
	).From("products").
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	if params.Search != "" {
		qb = qb.Where("name ILIKE ?", "%"+params.Search+"%")
	}
	if params.LowStock {
		qb = qb.Where("quantity <= low_stock_margin")
	}

	countQb := squirrel.Select("COUNT(*)").
		From("products").
		Where("deleted_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)
	if params.Search != "" {
		countQb = countQb.Where("name ILIKE ?", "%"+params.Search+"%")
	}
	if params.LowStock {
		countQb = countQb.Where("quantity <= low_stock_margin")
	}

	countSQL, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	// Apply sorting
	orderBy := "name ASC"
	if params.SortBy != "" {
		direction := "ASC"
		if params.SortOrder == "desc" {
			direction = "DESC"
		}

		switch params.SortBy {
		case "price":
			orderBy = fmt.Sprintf("price %s", direction)
		case "quantity":
			orderBy = fmt.Sprintf("quantity %s", direction)
		case "created":
			orderBy = fmt.Sprintf("created_at %s", direction)
		default:
			orderBy = fmt.Sprintf("name %s", direction)
		}
	}
	qb = qb.OrderBy(orderBy)

	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	qb = qb.Limit(uint64(pageSize)).Offset(uint64((page - 1) * pageSize))

	listSQL, listArgs, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.Quantity,
			&product.LowStockMargin, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
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

	return &ports.ProductListResult{
		Products:   products,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// AdjustStock applies a signed delta to a product's quantity. The row is
// locked first so concurrent checkouts and manual adjustments serialize.
func (r *productRepository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*domain.Product, error) {
	product := &domain.Product{}

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var quantity int
		err := tx.QueryRow(ctx, `
			SELECT quantity FROM products
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE`, productID).Scan(&quantity)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrProductNotFound
			}
			return fmt.Errorf("failed to lock product: %w", err)
		}

		if quantity+delta < 0 {
			return &domain.InsufficientStockError{
				Shortfalls: []domain.Shortfall{{
					ProductID: productID,
					Requested: -delta,
					Available: quantity,
				}},
			}
		}

		return tx.QueryRow(ctx, `
			UPDATE products
			SET quantity = quantity + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+productColumns, productID, delta).Scan(
			&product.ID, &product.Name, &product.Price, &product.Quantity,
			&product.LowStockMargin, &product.CreatedAt, &product.UpdatedAt,
		)
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID.String()),
		slog.Int("delta", delta),
		slog.Int("quantity", product.Quantity))

	return product, nil
}

// FindLowStock lists products at or below their reorder threshold.
func (r *productRepository) FindLowStock(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE deleted_at IS NULL AND quantity <= low_stock_margin
		ORDER BY quantity ASC, name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.Quantity,
			&product.LowStockMargin, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// SoftDelete marks a product as deleted
func (r *productRepository) SoftDelete(ctx context.Context, productID uuid.UUID) error {
	query := `UPDATE products SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	now := time.Now()
	tag, err := r.db.Exec(ctx, query, productID, now)
	if err != nil {
		return fmt.Errorf("failed to soft delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}

	r.logger.InfoContext(ctx, "product soft deleted",
		slog.String("product_id", productID.String()))

	return nil
}

// Exists checks if a product exists
func (r *productRepository) Exists(ctx context.Context, productID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)`

	var exists bool
	err := r.db.QueryRow(ctx, query, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return exists, nil
}
