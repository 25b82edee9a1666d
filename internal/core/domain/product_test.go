package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name      string
		product   domain.Product
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid_product",
			product: domain.Product{
				Name:           "Bag of Rice 5kg",
				Price:          decimal.NewFromFloat(4500),
				Quantity:       20,
				LowStockMargin: 5,
			},
			wantError: false,
		},
		{
			name: "missing_name",
			product: domain.Product{
				Price:    decimal.NewFromInt(100),
				Quantity: 1,
			},
			wantError: true,
			errorMsg:  "name is required",
		},
		{
			name: "negative_price",
			product: domain.Product{
				Name:  "Bad Price",
				Price: decimal.NewFromInt(-1),
			},
			wantError: true,
			errorMsg:  "price cannot be negative",
		},
		{
			name: "negative_quantity",
			product: domain.Product{
				Name:     "Bad Stock",
				Price:    decimal.NewFromInt(10),
				Quantity: -3,
			},
			wantError: true,
			errorMsg:  "quantity cannot be negative",
		},
		{
			name: "negative_low_stock_margin",
			product: domain.Product{
				Name:           "Bad Margin",
				Price:          decimal.NewFromInt(10),
				LowStockMargin: -1,
			},
			wantError: true,
			errorMsg:  "low_stock_margin cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestProduct_IsLowStock(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		margin   int
		expected bool
	}{
		{name: "well_above_margin", quantity: 50, margin: 5, expected: false},
		{name: "at_margin", quantity: 5, margin: 5, expected: true},
		{name: "below_margin", quantity: 2, margin: 5, expected: true},
		{name: "sold_out", quantity: 0, margin: 0, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := domain.Product{Quantity: tt.quantity, LowStockMargin: tt.margin}
			assert.Equal(t, tt.expected, product.IsLowStock())
		})
	}
}

func TestProduct_PrepareForStorage(t *testing.T) {
	product := domain.Product{
		Name:  "Carton of Noodles",
		Price: decimal.NewFromInt(8000),
	}

	product.PrepareForStorage()

	assert.NotEqual(t, uuid.Nil, product.ID)
	assert.False(t, product.CreatedAt.IsZero())
	assert.False(t, product.UpdatedAt.IsZero())

	// A second call keeps the identity and creation time stable.
	id, createdAt := product.ID, product.CreatedAt
	product.PrepareForStorage()
	assert.Equal(t, id, product.ID)
	assert.Equal(t, createdAt, product.CreatedAt)
}
