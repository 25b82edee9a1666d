//go:build integration
// +build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/amarachi/tillpoint-be/internal/adapters/db"
	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
	"github.com/amarachi/tillpoint-be/test/helpers"
)

type SaleRepositorySuite struct {
	suite.Suite
	testDB  *helpers.TestDB
	repo    ports.SaleRepository
	cashier domain.Caller
	ctx     context.Context
}

func (s *SaleRepositorySuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.repo = db.NewSaleRepository(s.testDB.Database, helpers.TestLogger())
	s.ctx = context.Background()
}

func (s *SaleRepositorySuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.cashier = helpers.TestCashier()
	helpers.SeedUser(s.T(), s.testDB.PgxPool, s.cashier)
}

// saveSale computes totals and persists the sale the way the checkout
// path does, inside a single transaction.
func (s *SaleRepositorySuite) saveSale(sale *domain.Sale) {
	sale.PrepareForStorage(decimal.RequireFromString("7.5"))
	err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		return s.repo.SaveTx(s.ctx, tx, sale)
	})
	s.Require().NoError(err)
}

func (s *SaleRepositorySuite) TestSaveTxAndFindByID() {
	water := helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Bottled Water 75cl" })
	bread := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Name = "Agege Bread"
		p.Price = decimal.RequireFromString("900.00")
	})
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{water, bread})

	sale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
		sl.PaymentMode = domain.PaymentCard
		sl.Items = []domain.SaleItem{
			{ProductID: water.ID, Quantity: 3, Price: water.Price},
			{ProductID: bread.ID, Quantity: 1, Price: bread.Price},
		}
	})
	s.saveSale(sale)

	found, err := s.repo.FindByID(s.ctx, sale.ID)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(sale.ID, found.ID)
	s.Equal(s.cashier.UserID, found.CashierID)
	s.Equal(s.cashier.Name, found.CashierName)
	s.Equal(domain.PaymentCard, found.PaymentMode)
	s.True(sale.Subtotal.Equal(found.Subtotal))
	s.True(sale.VatAmount.Equal(found.VatAmount))
	s.True(sale.TotalAmount.Equal(found.TotalAmount))

	// Items come back ordered by product name with the name snapshotted
	// from the catalog at insert time.
	s.Require().Len(found.Items, 2)
	s.Equal("Agege Bread", found.Items[0].ProductName)
	s.Equal("Bottled Water 75cl", found.Items[1].ProductName)
	s.Equal(1, found.Items[0].Quantity)
	s.Equal(3, found.Items[1].Quantity)
}

func (s *SaleRepositorySuite) TestSaleLinesSurviveCatalogChanges() {
	product := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Name = "Milo Tin 500g"
		p.Price = decimal.RequireFromString("3200.00")
	})
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	sale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
		sl.Items = []domain.SaleItem{
			{ProductID: product.ID, Quantity: 2, Price: product.Price},
		}
	})
	s.saveSale(sale)

	// Reprice and rename the product after the sale.
	_, err := s.testDB.PgxPool.Exec(s.ctx,
		`UPDATE products SET name = 'Milo Tin 500g (new)', price = 3500.00 WHERE id = $1`,
		product.ID)
	s.Require().NoError(err)

	found, err := s.repo.FindByID(s.ctx, sale.ID)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Require().Len(found.Items, 1)
	s.Equal("Milo Tin 500g", found.Items[0].ProductName)
	s.True(decimal.RequireFromString("3200.00").Equal(found.Items[0].Price))
	s.True(sale.TotalAmount.Equal(found.TotalAmount))
}

func (s *SaleRepositorySuite) TestFindByID_NotFound() {
	found, err := s.repo.FindByID(s.ctx, uuid.New())
	s.NoError(err)
	s.Nil(found)
}

func (s *SaleRepositorySuite) TestFindAll_Pagination() {
	product := helpers.CreateTestProduct()
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	for i := 0; i < 5; i++ {
		sale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
			sl.Items = []domain.SaleItem{
				{ProductID: product.ID, Quantity: 1, Price: product.Price},
			}
			sl.CreatedAt = time.Now().Add(-time.Duration(i) * time.Hour)
		})
		s.saveSale(sale)
	}

	seen := make(map[uuid.UUID]bool)
	for page := 1; page <= 3; page++ {
		result, err := s.repo.FindAll(s.ctx, ports.SaleListParams{Page: page, PageSize: 2})
		s.NoError(err)
		s.Equal(int64(5), result.TotalCount)
		s.Equal(3, result.TotalPages)
		s.Equal(page, result.Page)

		// Pages must partition the result set.
		for _, sale := range result.Sales {
			s.False(seen[sale.ID], "sale %s returned on more than one page", sale.ID)
			seen[sale.ID] = true
		}
	}
	s.Len(seen, 5)
}

func (s *SaleRepositorySuite) TestFindAll_FiltersAndAggregates() {
	product := helpers.CreateTestProduct()
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	other := helpers.TestCashier()
	other.Name = "Tunde Bakare"
	helpers.SeedUser(s.T(), s.testDB.PgxPool, other)

	type fixture struct {
		caller domain.Caller
		mode   domain.PaymentMode
		qty    int
	}
	fixtures := []fixture{
		{s.cashier, domain.PaymentCash, 1},
		{s.cashier, domain.PaymentCash, 2},
		{s.cashier, domain.PaymentCard, 3},
		{other, domain.PaymentBankTransfer, 4},
	}

	expectedTotal := decimal.Zero
	expectedByMode := make(map[domain.PaymentMode]decimal.Decimal)
	for _, f := range fixtures {
		sale := helpers.CreateTestSale(f.caller, func(sl *domain.Sale) {
			sl.PaymentMode = f.mode
			sl.Items = []domain.SaleItem{
				{ProductID: product.ID, Quantity: f.qty, Price: product.Price},
			}
		})
		s.saveSale(sale)
		expectedTotal = expectedTotal.Add(sale.TotalAmount)
		expectedByMode[f.mode] = expectedByMode[f.mode].Add(sale.TotalAmount)
	}

	// Unfiltered: aggregates cover every sale, not just the page.
	result, err := s.repo.FindAll(s.ctx, ports.SaleListParams{Page: 1, PageSize: 2})
	s.NoError(err)
	s.Len(result.Sales, 2)
	s.Equal(int64(4), result.Aggregates.SaleCount)
	s.True(expectedTotal.Equal(result.Aggregates.TotalRevenue))
	s.Len(result.Aggregates.ByPaymentMode, 3)
	for mode, sum := range expectedByMode {
		s.True(sum.Equal(result.Aggregates.ByPaymentMode[mode]),
			"aggregate mismatch for %s", mode)
	}

	// Cashier filter narrows both the page and the aggregates.
	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{CashierID: &other.UserID})
	s.NoError(err)
	s.Len(result.Sales, 1)
	s.Equal(int64(1), result.Aggregates.SaleCount)
	s.True(expectedByMode[domain.PaymentBankTransfer].Equal(result.Aggregates.TotalRevenue))

	// Payment mode filter.
	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{PaymentMode: domain.PaymentCash})
	s.NoError(err)
	s.Len(result.Sales, 2)
	s.True(expectedByMode[domain.PaymentCash].Equal(result.Aggregates.TotalRevenue))

	// Cashier name search.
	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{Search: "tunde"})
	s.NoError(err)
	s.Len(result.Sales, 1)
	s.Equal(other.UserID, result.Sales[0].CashierID)
}

func (s *SaleRepositorySuite) TestFindAll_Search() {
	milk := helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Peak Milk 400g" })
	sachet := helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Peak Milk Sachet" })
	bread := helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "Agege Bread" })
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{milk, sachet, bread})

	other := helpers.TestCashier()
	other.Name = "Tunde Bakare"
	helpers.SeedUser(s.T(), s.testDB.PgxPool, other)

	milkSale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
		sl.Items = []domain.SaleItem{
			{ProductID: milk.ID, Quantity: 2, Price: milk.Price},
			{ProductID: sachet.ID, Quantity: 5, Price: sachet.Price},
		}
	})
	s.saveSale(milkSale)

	breadSale := helpers.CreateTestSale(other, func(sl *domain.Sale) {
		sl.Items = []domain.SaleItem{
			{ProductID: bread.ID, Quantity: 1, Price: bread.Price},
		}
	})
	s.saveSale(breadSale)

	// Product name, case-insensitively. Two matching lines on the same
	// sale must not produce a duplicate row or inflate the aggregates.
	result, err := s.repo.FindAll(s.ctx, ports.SaleListParams{Search: "PEAK milk"})
	s.NoError(err)
	s.Require().Len(result.Sales, 1)
	s.Equal(milkSale.ID, result.Sales[0].ID)
	s.Equal(int64(1), result.TotalCount)
	s.Equal(int64(1), result.Aggregates.SaleCount)
	s.True(milkSale.TotalAmount.Equal(result.Aggregates.TotalRevenue))

	// Sale id.
	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{Search: breadSale.ID.String()})
	s.NoError(err)
	s.Require().Len(result.Sales, 1)
	s.Equal(breadSale.ID, result.Sales[0].ID)

	// Username as seeded by the fixtures.
	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{Search: "user_" + other.UserID.String()})
	s.NoError(err)
	s.Require().Len(result.Sales, 1)
	s.Equal(breadSale.ID, result.Sales[0].ID)

	// Cashier display name.
	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{Search: "bakare"})
	s.NoError(err)
	s.Require().Len(result.Sales, 1)
	s.Equal(other.UserID, result.Sales[0].CashierID)

	result, err = s.repo.FindAll(s.ctx, ports.SaleListParams{Search: "no such thing"})
	s.NoError(err)
	s.Empty(result.Sales)
	s.Equal(int64(0), result.TotalCount)
}

func (s *SaleRepositorySuite) TestFindAll_TimeWindow() {
	product := helpers.CreateTestProduct()
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	now := time.Now()
	ages := []time.Duration{0, 24 * time.Hour, 10 * 24 * time.Hour}
	for _, age := range ages {
		sale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
			sl.Items = []domain.SaleItem{
				{ProductID: product.ID, Quantity: 1, Price: product.Price},
			}
			sl.CreatedAt = now.Add(-age)
		})
		s.saveSale(sale)
	}

	from := now.Add(-2 * 24 * time.Hour)
	to := now.Add(time.Minute)
	result, err := s.repo.FindAll(s.ctx, ports.SaleListParams{From: &from, To: &to})
	s.NoError(err)
	s.Len(result.Sales, 2)
	s.Equal(int64(2), result.Aggregates.SaleCount)
}

func (s *SaleRepositorySuite) TestFindAll_Sorting() {
	product := helpers.CreateTestProduct()
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	for _, qty := range []int{3, 1, 2} {
		sale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
			sl.Items = []domain.SaleItem{
				{ProductID: product.ID, Quantity: qty, Price: product.Price},
			}
		})
		s.saveSale(sale)
	}

	result, err := s.repo.FindAll(s.ctx, ports.SaleListParams{SortBy: "total", SortOrder: "desc"})
	s.NoError(err)
	s.Require().Len(result.Sales, 3)
	for i := 1; i < len(result.Sales); i++ {
		s.True(result.Sales[i-1].TotalAmount.GreaterThanOrEqual(result.Sales[i].TotalAmount))
	}
}

func (s *SaleRepositorySuite) TestSoftDelete() {
	product := helpers.CreateTestProduct()
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	sale := helpers.CreateTestSale(s.cashier, func(sl *domain.Sale) {
		sl.Items = []domain.SaleItem{
			{ProductID: product.ID, Quantity: 1, Price: product.Price},
		}
	})
	s.saveSale(sale)

	err := s.repo.SoftDelete(s.ctx, sale.ID)
	s.NoError(err)

	found, err := s.repo.FindByID(s.ctx, sale.ID)
	s.NoError(err)
	s.Nil(found)

	exists, err := s.repo.Exists(s.ctx, sale.ID)
	s.NoError(err)
	s.False(exists)

	// Repeated delete reports the sale as gone.
	err = s.repo.SoftDelete(s.ctx, sale.ID)
	s.ErrorIs(err, domain.ErrSaleNotFound)
}

func TestSaleRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(SaleRepositorySuite))
}
