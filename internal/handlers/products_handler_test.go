// internal/handlers/products_handler_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/handlers"
	"github.com/amarachi/tillpoint-be/internal/handlers/middleware"
	"github.com/amarachi/tillpoint-be/test/helpers"
	"github.com/amarachi/tillpoint-be/test/mocks"
)

func TestProductsHandler_CreateProduct(t *testing.T) {
	manager := helpers.TestManager()

	tests := []struct {
		name           string
		caller         domain.Caller
		body           map[string]interface{}
		setupMocks     func(*mocks.MockProductService)
		expectedStatus int
	}{
		{
			name:   "successfully_creates_product",
			caller: manager,
			body: map[string]interface{}{
				"name":             "Peak Milk 170g",
				"price":            "320.00",
				"quantity":         40,
				"low_stock_margin": 5,
			},
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().
					CreateProduct(gomock.Any(), manager, gomock.Any()).
					DoAndReturn(func(_ interface{}, _ domain.Caller, p *domain.Product) error {
						p.ID = uuid.New()
						return nil
					})
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "negative_price_rejected",
			caller: manager,
			body: map[string]interface{}{
				"name":  "Peak Milk 170g",
				"price": "-1.00",
			},
			setupMocks:     func(m *mocks.MockProductService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "empty_name_rejected",
			caller: manager,
			body: map[string]interface{}{
				"name":  "",
				"price": "320.00",
			},
			setupMocks:     func(m *mocks.MockProductService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "cashier_gets_403",
			caller: helpers.TestCashier(),
			body: map[string]interface{}{
				"name":  "Peak Milk 170g",
				"price": "320.00",
			},
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().
					CreateProduct(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(domain.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockProductService(ctrl)
			handler := handlers.NewProductsHandler(mockService, helpers.TestLogger())
			tt.setupMocks(mockService)

			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			req := httptest.NewRequest("POST", "/api/v1/products", bytes.NewReader(body))
			req = req.WithContext(middleware.WithCaller(req.Context(), tt.caller))
			w := httptest.NewRecorder()

			handler.CreateProduct(w, req)

			assert.Equal(t, tt.expectedStatus, w.Result().StatusCode)
		})
	}
}

func TestProductsHandler_GetProduct(t *testing.T) {
	product := &domain.Product{
		ID:       uuid.New(),
		Name:     "Bottled Water 75cl",
		Price:    decimal.RequireFromString("250.00"),
		Quantity: 100,
	}

	tests := []struct {
		name           string
		productID      string
		setupMocks     func(*mocks.MockProductService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name:      "successfully_retrieves_product",
			productID: product.ID.String(),
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().GetProduct(gomock.Any(), product.ID).Return(product, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response domain.Product
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, product.Name, response.Name)
				assert.Equal(t, 100, response.Quantity)
			},
		},
		{
			name:           "invalid_uuid_format",
			productID:      "abc",
			setupMocks:     func(m *mocks.MockProductService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "product_not_found",
			productID: uuid.New().String(),
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().GetProduct(gomock.Any(), gomock.Any()).
					Return(nil, domain.ErrProductNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockProductService(ctrl)
			handler := handlers.NewProductsHandler(mockService, helpers.TestLogger())
			tt.setupMocks(mockService)

			req := httptest.NewRequest("GET", "/api/v1/products/"+tt.productID, nil)
			req.SetPathValue("id", tt.productID)
			req = req.WithContext(middleware.WithCaller(req.Context(), helpers.TestManager()))
			w := httptest.NewRecorder()

			handler.GetProduct(w, req)

			assert.Equal(t, tt.expectedStatus, w.Result().StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestProductsHandler_AdjustStock(t *testing.T) {
	manager := helpers.TestManager()
	productID := uuid.New()

	tests := []struct {
		name           string
		body           map[string]interface{}
		setupMocks     func(*mocks.MockProductService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "restock_succeeds",
			body: map[string]interface{}{"delta": 12},
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().
					AdjustStock(gomock.Any(), manager, productID, 12).
					Return(&domain.Product{ID: productID, Quantity: 112}, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response domain.Product
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, 112, response.Quantity)
			},
		},
		{
			name: "zero_delta_rejected",
			body: map[string]interface{}{"delta": 0},
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().
					AdjustStock(gomock.Any(), manager, productID, 0).
					Return(nil, domain.NewValidationError("delta", "adjustment must be non-zero"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "negative_adjustment_below_stock_gets_409",
			body: map[string]interface{}{"delta": -500},
			setupMocks: func(m *mocks.MockProductService) {
				m.EXPECT().
					AdjustStock(gomock.Any(), manager, productID, -500).
					Return(nil, &domain.InsufficientStockError{Shortfalls: []domain.Shortfall{
						{ProductID: productID, Requested: 500, Available: 100},
					}})
			},
			expectedStatus: http.StatusConflict,
			validateBody: func(t *testing.T, body []byte) {
				var response handlers.InsufficientStockResponse
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, "INSUFFICIENT_STOCK", response.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockProductService(ctrl)
			handler := handlers.NewProductsHandler(mockService, helpers.TestLogger())
			tt.setupMocks(mockService)

			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			req := httptest.NewRequest("POST",
				"/api/v1/products/"+productID.String()+"/stock", bytes.NewReader(body))
			req.SetPathValue("id", productID.String())
			req = req.WithContext(middleware.WithCaller(req.Context(), manager))
			w := httptest.NewRecorder()

			handler.AdjustStock(w, req)

			assert.Equal(t, tt.expectedStatus, w.Result().StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestProductsHandler_ListLowStock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockProductService(ctrl)
	handler := handlers.NewProductsHandler(mockService, helpers.TestLogger())

	lowStock := []*domain.Product{
		{ID: uuid.New(), Name: "Indomie 70g", Quantity: 3, LowStockMargin: 10},
		{ID: uuid.New(), Name: "Bottled Water 75cl", Quantity: 0, LowStockMargin: 10},
	}

	mockService.EXPECT().ListLowStock(gomock.Any()).Return(lowStock, nil)

	req := httptest.NewRequest("GET", "/api/v1/products/low-stock", nil)
	req = req.WithContext(middleware.WithCaller(req.Context(), helpers.TestManager()))
	w := httptest.NewRecorder()

	handler.ListLowStock(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var response struct {
		Products []*domain.Product `json:"products"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Products, 2)
	assert.Equal(t, "Indomie 70g", response.Products[0].Name)
}

func TestProductsHandler_DeleteProduct(t *testing.T) {
	manager := helpers.TestManager()
	productID := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockProductService(ctrl)
	handler := handlers.NewProductsHandler(mockService, helpers.TestLogger())

	mockService.EXPECT().DeleteProduct(gomock.Any(), manager, productID).Return(nil)

	req := httptest.NewRequest("DELETE", "/api/v1/products/"+productID.String(), nil)
	req.SetPathValue("id", productID.String())
	req = req.WithContext(middleware.WithCaller(req.Context(), manager))
	w := httptest.NewRecorder()

	handler.DeleteProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}
