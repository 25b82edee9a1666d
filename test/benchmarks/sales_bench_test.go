package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/adapters/db"
	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
	"github.com/amarachi/tillpoint-be/internal/core/services"
	"github.com/amarachi/tillpoint-be/test/helpers"
)

func BenchmarkSaleTotals(b *testing.B) {
	vatRate := decimal.RequireFromString("7.5")
	items := make([]domain.SaleItem, 10)
	for i := range items {
		items[i] = domain.SaleItem{
			ProductID: uuid.New(),
			Quantity:  1 + i,
			Price:     decimal.RequireFromString("250.00"),
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		subtotal := domain.ItemsSubtotal(items)
		_ = domain.CalculateSaleTotals(subtotal, vatRate)
	}
}

func BenchmarkMergeItems(b *testing.B) {
	// Half the lines are duplicates so the merge path actually merges
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	items := make([]domain.SaleItem, 10)
	for i := range items {
		items[i] = domain.SaleItem{
			ProductID: ids[i%len(ids)],
			Quantity:  2,
			Price:     decimal.RequireFromString("250.00"),
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = domain.MergeItems(items)
	}
}

func BenchmarkSaleOperations(b *testing.B) {
	testDB := helpers.SetupTestDB(&testing.T{})
	defer testDB.Database.Close()

	logger := helpers.TestLogger()
	cfg := helpers.LoadTestConfig()

	saleRepo := db.NewSaleRepository(testDB.Database, logger)
	_ = db.NewProductRepository(testDB.Database, logger)
	reserver := db.NewStockReserver(logger)

	service := services.NewSaleService(
		saleRepo, reserver, testDB.Database, noopSink{}, nil, cfg.Sales, logger)

	ctx := context.Background()
	cashier := helpers.TestCashier()
	helpers.SeedUser(&testing.T{}, testDB.PgxPool, cashier)

	// One product with effectively unlimited stock so checkout never
	// conflicts during the write benchmark
	product := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Quantity = 10_000_000
	})
	helpers.SeedProducts(&testing.T{}, testDB.PgxPool, []*domain.Product{product})

	b.Run("RecordSale", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			sale := helpers.CreateTestSale(cashier, func(s *domain.Sale) {
				s.Items = []domain.SaleItem{{
					ProductID: product.ID,
					Quantity:  1,
					Price:     product.Price,
				}}
			})
			_, _ = service.RecordSale(ctx, cashier, sale)
		}
	})

	// Pre-create sales for read benchmarks
	var saleIDs []uuid.UUID
	for i := 0; i < 100; i++ {
		sale := helpers.CreateTestSale(cashier, func(s *domain.Sale) {
			s.Items = []domain.SaleItem{{
				ProductID: product.ID,
				Quantity:  1,
				Price:     product.Price,
			}}
		})
		committed, err := service.RecordSale(ctx, cashier, sale)
		if err != nil {
			b.Fatalf("seed sale %d: %v", i, err)
		}
		saleIDs = append(saleIDs, committed.ID)
	}

	b.Run("GetSale", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			id := saleIDs[i%len(saleIDs)]
			_, _ = service.GetSale(ctx, cashier, id)
		}
	})

	b.Run("ListSales", func(b *testing.B) {
		params := ports.SaleListParams{
			Page:     1,
			PageSize: 50,
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = service.ListSales(ctx, cashier, params)
		}
	})
}

func BenchmarkProductList(b *testing.B) {
	testDB := helpers.SetupTestDB(&testing.T{})
	defer testDB.Database.Close()

	logger := helpers.TestLogger()
	productRepo := db.NewProductRepository(testDB.Database, logger)
	service := services.NewProductService(productRepo, noopSink{}, nil, nil, logger)

	ctx := context.Background()

	products := make([]*domain.Product, 200)
	for i := range products {
		products[i] = helpers.CreateTestProduct(func(p *domain.Product) {
			p.Name = fmt.Sprintf("Bench Product %d", i)
		})
	}
	helpers.SeedProducts(&testing.T{}, testDB.PgxPool, products)

	b.Run("List", func(b *testing.B) {
		params := ports.ProductListParams{
			Page:     1,
			PageSize: 50,
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = service.ListProducts(ctx, params)
		}
	})

	b.Run("LowStock", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = service.ListLowStock(ctx)
		}
	})
}

// noopSink discards audit events so benchmarks measure the checkout path
// alone.
type noopSink struct{}

func (noopSink) Emit(context.Context, domain.AuditEvent) error { return nil }
