// internal/core/services/checkout_service_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/services"
	"github.com/amarachi/tillpoint-be/test/helpers"
	"github.com/amarachi/tillpoint-be/test/mocks"
)

type saleServiceMocks struct {
	sales    *mocks.MockSaleRepository
	reserver *mocks.MockStockReserver
	db       *mocks.MockTxRunner
	audit    *mocks.MockAuditSink
}

func newSaleService(t *testing.T) (*services.SaleService, *saleServiceMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := &saleServiceMocks{
		sales:    mocks.NewMockSaleRepository(ctrl),
		reserver: mocks.NewMockStockReserver(ctrl),
		db:       mocks.NewMockTxRunner(ctrl),
		audit:    mocks.NewMockAuditSink(ctrl),
	}

	cfg := helpers.LoadTestConfig().Sales
	service := services.NewSaleService(m.sales, m.reserver, m.db, m.audit, nil, cfg, helpers.TestLogger())
	return service, m
}

// passthroughTx makes the transaction runner invoke the given function
// directly, the way the real database adapter would inside a transaction.
func passthroughTx(m *mocks.MockTxRunner) {
	m.EXPECT().
		TransactionWithOptions(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
			return fn(nil)
		})
}

func TestSaleService_RecordSale(t *testing.T) {
	cashier := helpers.TestCashier()

	tests := []struct {
		name          string
		caller        domain.Caller
		sale          *domain.Sale
		setupMocks    func(*saleServiceMocks)
		expectedError error
		errorContains string
	}{
		{
			name:   "anonymous_caller_rejected",
			caller: domain.Caller{},
			sale:   helpers.CreateTestSale(cashier),
			setupMocks: func(m *saleServiceMocks) {
			},
			expectedError: domain.ErrUnauthorized,
		},
		{
			name:   "validation_fails_for_empty_items",
			caller: cashier,
			sale: helpers.CreateTestSale(cashier, func(s *domain.Sale) {
				s.Items = nil
			}),
			setupMocks: func(m *saleServiceMocks) {
			},
			errorContains: "items must not be empty",
		},
		{
			name:   "validation_fails_for_unknown_payment_mode",
			caller: cashier,
			sale: helpers.CreateTestSale(cashier, func(s *domain.Sale) {
				s.PaymentMode = "IOU"
			}),
			setupMocks: func(m *saleServiceMocks) {
			},
			errorContains: "unknown payment_mode",
		},
		{
			name:   "repository_error_wraps_commit_failure",
			caller: cashier,
			sale:   helpers.CreateTestSale(cashier),
			setupMocks: func(m *saleServiceMocks) {
				passthroughTx(m.db)
				m.reserver.EXPECT().
					ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, nil)
				m.sales.EXPECT().
					SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("connection reset"))
			},
			errorContains: "failed to commit sale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newSaleService(t)
			tt.setupMocks(m)

			result, err := service.RecordSale(context.Background(), tt.caller, tt.sale)

			require.Error(t, err)
			assert.Nil(t, result)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			}
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}
		})
	}
}

func TestSaleService_RecordSale_Succeeds(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	sale := helpers.CreateTestSale(cashier, func(s *domain.Sale) {
		// The payload's cashier must be ignored in favor of the caller.
		s.CashierID = uuid.New()
		s.CashierName = "Impostor"
		s.Items = []domain.SaleItem{
			{ProductID: uuid.New(), Quantity: 4, Price: decimal.RequireFromString("250.00")},
		}
	})

	passthroughTx(m.db)
	m.reserver.EXPECT().
		ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, tx pgx.Tx, reqs []domain.ReservationRequest) ([]domain.Shortfall, error) {
			require.Len(t, reqs, 1)
			assert.Equal(t, 4, reqs[0].Quantity)
			return nil, nil
		})
	m.sales.EXPECT().
		SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	m.audit.EXPECT().
		Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, event domain.AuditEvent) error {
			assert.Equal(t, domain.AuditActionSaleRecorded, event.Action)
			assert.Equal(t, cashier.UserID, event.ActorID)
			return nil
		})

	result, err := service.RecordSale(context.Background(), cashier, sale)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, cashier.UserID, result.CashierID)
	assert.Equal(t, cashier.Name, result.CashierName)
	assert.NotEqual(t, uuid.Nil, result.ID)

	// 4 x 250.00 at the default 7.5% rate.
	assert.True(t, result.Subtotal.Equal(decimal.RequireFromString("1000.00")),
		"subtotal was %s", result.Subtotal)
	assert.True(t, result.VatAmount.Equal(decimal.RequireFromString("75.00")),
		"vat was %s", result.VatAmount)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("1075.00")),
		"total was %s", result.TotalAmount)
}

func TestSaleService_RecordSale_MergesDuplicateLines(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	productID := uuid.New()
	sale := helpers.CreateTestSale(cashier, func(s *domain.Sale) {
		s.Items = []domain.SaleItem{
			{ProductID: productID, Quantity: 2, Price: decimal.RequireFromString("100.00")},
			{ProductID: productID, Quantity: 3, Price: decimal.RequireFromString("100.00")},
		}
	})

	passthroughTx(m.db)
	m.reserver.EXPECT().
		ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, tx pgx.Tx, reqs []domain.ReservationRequest) ([]domain.Shortfall, error) {
			require.Len(t, reqs, 1, "duplicate lines must be merged before locking")
			assert.Equal(t, productID, reqs[0].ProductID)
			assert.Equal(t, 5, reqs[0].Quantity)
			return nil, nil
		})
	m.sales.EXPECT().SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	result, err := service.RecordSale(context.Background(), cashier, sale)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 5, result.Items[0].Quantity)
	assert.True(t, result.Subtotal.Equal(decimal.RequireFromString("500.00")))
}

func TestSaleService_RecordSale_ShortfallAbortsCommit(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	sale := helpers.CreateTestSale(cashier)
	shortfalls := []domain.Shortfall{
		{ProductID: sale.Items[0].ProductID, Requested: 2, Available: 1},
		{ProductID: uuid.New(), Requested: 5, Available: 0},
	}

	passthroughTx(m.db)
	m.reserver.EXPECT().
		ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(shortfalls, nil)
	// SaveTx must never be called when any product falls short.

	result, err := service.RecordSale(context.Background(), cashier, sale)

	require.Error(t, err)
	assert.Nil(t, result)

	ise, ok := domain.IsInsufficientStock(err)
	require.True(t, ok, "expected an insufficient stock error, got %v", err)
	assert.Equal(t, shortfalls, ise.Shortfalls)
}

func TestSaleService_RecordSale_CheckViolationMapsToInsufficientStock(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	sale := helpers.CreateTestSale(cashier)

	m.db.EXPECT().
		TransactionWithOptions(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "products_quantity_check"})

	result, err := service.RecordSale(context.Background(), cashier, sale)

	require.Error(t, err)
	assert.Nil(t, result)

	_, ok := domain.IsInsufficientStock(err)
	assert.True(t, ok, "check violations must surface as insufficient stock, got %v", err)
}

func TestSaleService_RecordSale_AuditFailureDoesNotFailSale(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	sale := helpers.CreateTestSale(cashier)

	passthroughTx(m.db)
	m.reserver.EXPECT().ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	m.sales.EXPECT().SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("queue unavailable"))

	result, err := service.RecordSale(context.Background(), cashier, sale)

	require.NoError(t, err, "a sink failure must never fail an already committed sale")
	require.NotNil(t, result)
}

func TestSaleService_RecordSale_VatOverride(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	override := decimal.RequireFromString("10")
	sale := helpers.CreateTestSale(cashier, func(s *domain.Sale) {
		s.VatOverride = &override
		s.Items = []domain.SaleItem{
			{ProductID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString("200.00")},
		}
	})

	passthroughTx(m.db)
	m.reserver.EXPECT().ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	m.sales.EXPECT().SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	result, err := service.RecordSale(context.Background(), cashier, sale)

	require.NoError(t, err)
	assert.True(t, result.VatPercentage.Equal(decimal.RequireFromString("10")))
	assert.True(t, result.VatAmount.Equal(decimal.RequireFromString("20.00")),
		"vat was %s", result.VatAmount)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("220.00")))
}

func TestSaleService_RecordSale_ZeroVatOverride(t *testing.T) {
	cashier := helpers.TestCashier()
	service, m := newSaleService(t)

	exempt := decimal.Zero
	sale := helpers.CreateTestSale(cashier, func(s *domain.Sale) {
		s.VatOverride = &exempt
		s.Items = []domain.SaleItem{
			{ProductID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString("200.00")},
		}
	})

	passthroughTx(m.db)
	m.reserver.EXPECT().ReserveStock(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	m.sales.EXPECT().SaveTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	m.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	result, err := service.RecordSale(context.Background(), cashier, sale)

	// An explicit zero rate means tax exempt, not "use the default".
	require.NoError(t, err)
	assert.True(t, result.VatPercentage.IsZero())
	assert.True(t, result.VatAmount.IsZero(), "vat was %s", result.VatAmount)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("200.00")))
}

func TestSaleService_EffectiveVatRate(t *testing.T) {
	service, _ := newSaleService(t)

	zero := decimal.Zero
	custom := decimal.RequireFromString("12.5")

	assert.True(t, service.EffectiveVatRate(nil).
		Equal(decimal.RequireFromString("7.5")))
	assert.True(t, service.EffectiveVatRate(&zero).IsZero())
	assert.True(t, service.EffectiveVatRate(&custom).Equal(custom))
}
