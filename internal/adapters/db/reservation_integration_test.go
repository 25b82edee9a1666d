//go:build integration
// +build integration

package db_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/suite"

	"github.com/amarachi/tillpoint-be/internal/adapters/db"
	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/test/helpers"
)

type StockReserverSuite struct {
	suite.Suite
	testDB   *helpers.TestDB
	reserver *db.StockReserver
	ctx      context.Context
}

func (s *StockReserverSuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.reserver = db.NewStockReserver(helpers.TestLogger())
	s.ctx = context.Background()
}

func (s *StockReserverSuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
}

func (s *StockReserverSuite) quantityOf(productID uuid.UUID) int {
	var quantity int
	err := s.testDB.PgxPool.QueryRow(s.ctx,
		`SELECT quantity FROM products WHERE id = $1`, productID).Scan(&quantity)
	s.Require().NoError(err)
	return quantity
}

func (s *StockReserverSuite) TestReserveStock_DecrementsOnSuccess() {
	product := helpers.CreateTestProduct(func(p *domain.Product) { p.Quantity = 10 })
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, []domain.ReservationRequest{
			{ProductID: product.ID, Quantity: 4},
		})
		s.NoError(err)
		s.Empty(shortfalls)
		return nil
	})
	s.NoError(err)

	s.Equal(6, s.quantityOf(product.ID))
}

func (s *StockReserverSuite) TestReserveStock_ShortfallLeavesStockUntouched() {
	first := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Name = "Indomie Chicken 70g"
		p.Quantity = 3
	})
	second := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Name = "Peak Milk 400g"
		p.Quantity = 1
	})
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{first, second})

	err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, []domain.ReservationRequest{
			{ProductID: first.ID, Quantity: 5},
			{ProductID: second.ID, Quantity: 2},
		})
		s.NoError(err)
		s.Len(shortfalls, 2)

		byProduct := make(map[uuid.UUID]domain.Shortfall, len(shortfalls))
		for _, sf := range shortfalls {
			byProduct[sf.ProductID] = sf
		}
		s.Equal(5, byProduct[first.ID].Requested)
		s.Equal(3, byProduct[first.ID].Available)
		s.Equal(2, byProduct[second.ID].Requested)
		s.Equal(1, byProduct[second.ID].Available)
		return nil
	})
	s.NoError(err)

	s.Equal(3, s.quantityOf(first.ID))
	s.Equal(1, s.quantityOf(second.ID))
}

func (s *StockReserverSuite) TestReserveStock_MixedBatchIsAtomic() {
	available := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Name = "Golden Penny Spaghetti"
		p.Quantity = 50
	})
	short := helpers.CreateTestProduct(func(p *domain.Product) {
		p.Name = "Dano Milk Sachet"
		p.Quantity = 2
	})
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{available, short})

	err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, []domain.ReservationRequest{
			{ProductID: available.ID, Quantity: 10},
			{ProductID: short.ID, Quantity: 5},
		})
		s.NoError(err)
		s.Len(shortfalls, 1)
		s.Equal(short.ID, shortfalls[0].ProductID)
		return nil
	})
	s.NoError(err)

	// One failing line must not decrement the lines that could be served.
	s.Equal(50, s.quantityOf(available.ID))
	s.Equal(2, s.quantityOf(short.ID))
}

func (s *StockReserverSuite) TestReserveStock_MissingProductReportsZeroAvailable() {
	missing := uuid.New()

	err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, []domain.ReservationRequest{
			{ProductID: missing, Quantity: 1},
		})
		s.NoError(err)
		s.Require().Len(shortfalls, 1)
		s.Equal(missing, shortfalls[0].ProductID)
		s.Equal(1, shortfalls[0].Requested)
		s.Equal(0, shortfalls[0].Available)
		return nil
	})
	s.NoError(err)
}

func (s *StockReserverSuite) TestReserveStock_DeletedProductReportsZeroAvailable() {
	product := helpers.CreateTestProduct(func(p *domain.Product) { p.Quantity = 40 })
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	_, err := s.testDB.PgxPool.Exec(s.ctx,
		`UPDATE products SET deleted_at = NOW() WHERE id = $1`, product.ID)
	s.Require().NoError(err)

	err = s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, []domain.ReservationRequest{
			{ProductID: product.ID, Quantity: 1},
		})
		s.NoError(err)
		s.Require().Len(shortfalls, 1)
		s.Equal(0, shortfalls[0].Available)
		return nil
	})
	s.NoError(err)
}

func (s *StockReserverSuite) TestReserveStock_EmptyRequests() {
	err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
		shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, nil)
		s.NoError(err)
		s.Nil(shortfalls)
		return nil
	})
	s.NoError(err)
}

func (s *StockReserverSuite) TestReserveStock_ConcurrentReservations() {
	product := helpers.CreateTestProduct(func(p *domain.Product) { p.Quantity = 5 })
	helpers.SeedProducts(s.T(), s.testDB.PgxPool, []*domain.Product{product})

	const attempts = 12
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.testDB.Database.Transaction(s.ctx, func(tx pgx.Tx) error {
				shortfalls, err := s.reserver.ReserveStock(s.ctx, tx, []domain.ReservationRequest{
					{ProductID: product.ID, Quantity: 1},
				})
				if err != nil {
					return err
				}
				if len(shortfalls) > 0 {
					return &domain.InsufficientStockError{Shortfalls: shortfalls}
				}
				return nil
			})
			results <- err == nil
		}()
	}

	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}

	s.Equal(5, succeeded)
	s.Equal(0, s.quantityOf(product.ID))
}

func TestStockReserverSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(StockReserverSuite))
}
