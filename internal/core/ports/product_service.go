// internal/core/ports/product_service.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

// ProductService defines the application service port for the catalog.
// This interface is implemented by the application service.
type ProductService interface {
	CreateProduct(ctx context.Context, caller domain.Caller, product *domain.Product) error
	UpdateProduct(ctx context.Context, caller domain.Caller, productID uuid.UUID, product *domain.Product) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, params ProductListParams) (*ProductListResult, error)
	AdjustStock(ctx context.Context, caller domain.Caller, productID uuid.UUID, delta int) (*domain.Product, error)
	ListLowStock(ctx context.Context) ([]*domain.Product, error)
	DeleteProduct(ctx context.Context, caller domain.Caller, productID uuid.UUID) error
}
