// internal/core/ports/product_repository.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// ProductRepository defines the persistence port for the product catalog.
// This interface is implemented by the database adapter.
type ProductRepository interface {
	Save(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	FindAll(ctx context.Context, params ProductListParams) (*ProductListResult, error)
	// AdjustStock applies a signed delta to a product's quantity under a
	// row lock and returns the updated product.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*domain.Product, error)
	FindLowStock(ctx context.Context) ([]*domain.Product, error)
	SoftDelete(ctx context.Context, productID uuid.UUID) error
	Exists(ctx context.Context, productID uuid.UUID) (bool, error)
}

// ProductListParams holds filters and pagination for listing products.
type ProductListParams struct {
	Search    string
	LowStock  bool
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// ProductListResult holds one page of products.
type ProductListResult struct {
	Products   []*domain.Product `json:"products"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}
