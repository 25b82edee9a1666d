// internal/handlers/sales.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
	"github.com/amarachi/tillpoint-be/internal/handlers/middleware"
)

// SalesHandler handles sale-related HTTP requests
type SalesHandler struct {
	service ports.SaleService
	logger  *slog.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(service ports.SaleService, logger *slog.Logger) *SalesHandler {
	return &SalesHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "sales")),
	}
}

// RecordSale handles POST /api/v1/sales
func (h *SalesHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sale, err := h.service.RecordSale(ctx, caller, req.ToDomain())
	if err != nil {
		h.respondServiceError(w, r, err, "failed to record sale")
		return
	}

	h.respondJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid sale ID format")
		return
	}

	sale, err := h.service.GetSale(ctx, caller, saleID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to get sale")
		return
	}

	h.respondJSON(w, http.StatusOK, sale)
}

// ListSales handles GET /api/v1/sales
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	params, err := h.parseListParams(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListSales(ctx, caller, params)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to list sales")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// DeleteSale handles DELETE /api/v1/sales/{id}
func (h *SalesHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid sale ID format")
		return
	}

	if err := h.service.DeleteSale(ctx, caller, saleID); err != nil {
		h.respondServiceError(w, r, err, "failed to delete sale")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Sale deleted successfully",
		"sale_id": saleID.String(),
	})
}

// parseListParams parses query parameters for listing sales
func (h *SalesHandler) parseListParams(r *http.Request) (ports.SaleListParams, error) {
	params := ports.SaleListParams{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	q := r.URL.Query()

	if page := q.Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := q.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				params.PageSize = 100
			} else {
				params.PageSize = l
			}
		}
	}

	if cashier := q.Get("cashier_id"); cashier != "" {
		id, err := uuid.Parse(cashier)
		if err != nil {
			return params, fmt.Errorf("invalid cashier_id filter")
		}
		params.CashierID = &id
	}

	if mode := q.Get("payment_mode"); mode != "" {
		paymentMode := domain.PaymentMode(mode)
		if !paymentMode.Valid() {
			return params, fmt.Errorf("unknown payment_mode filter: %s", mode)
		}
		params.PaymentMode = paymentMode
	}

	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return params, fmt.Errorf("invalid from timestamp, expected RFC3339")
		}
		params.From = &t
	}

	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return params, fmt.Errorf("invalid to timestamp, expected RFC3339")
		}
		params.To = &t
	}

	params.Search = q.Get("search")

	if sortBy := q.Get("sort"); sortBy != "" {
		params.SortBy = sortBy
	}

	if order := q.Get("order"); order == "asc" || order == "desc" {
		params.SortOrder = order
	}

	return params, nil
}

// respondServiceError maps service errors onto HTTP status codes.
func (h *SalesHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	ctx := r.Context()

	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "Not permitted")
	case errors.Is(err, domain.ErrSaleNotFound):
		h.respondError(w, http.StatusNotFound, "Sale not found")
	case errors.As(err, &validationErr):
		h.respondError(w, http.StatusBadRequest, validationErr.Error())
	default:
		if ise, ok := domain.IsInsufficientStock(err); ok {
			h.respondJSON(w, http.StatusConflict, InsufficientStockResponse{
				Error:      "Insufficient stock for one or more products",
				Code:       "INSUFFICIENT_STOCK",
				Shortfalls: ise.Shortfalls,
			})
			return
		}
		h.logger.ErrorContext(ctx, logMsg,
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *SalesHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *SalesHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request/Response DTOs

// CreateSaleRequest represents the request body for recording a sale
type CreateSaleRequest struct {
	PaymentMode   string            `json:"payment_mode"`
	VatPercentage *decimal.Decimal  `json:"vat_percentage,omitempty"`
	Items         []SaleItemRequest `json:"items"`
}

// SaleItemRequest is one line of a sale request
type SaleItemRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Validate validates the create sale request
func (r *CreateSaleRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	if !domain.PaymentMode(r.PaymentMode).Valid() {
		return fmt.Errorf("unknown payment_mode: %s", r.PaymentMode)
	}
	for idx, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return fmt.Errorf("items[%d]: product_id is required", idx)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d]: quantity must be positive", idx)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("items[%d]: price cannot be negative", idx)
		}
	}
	if r.VatPercentage != nil && r.VatPercentage.IsNegative() {
		return fmt.Errorf("vat_percentage cannot be negative")
	}
	return nil
}

// ToDomain converts the request to a domain model
func (r *CreateSaleRequest) ToDomain() *domain.Sale {
	sale := &domain.Sale{
		PaymentMode: domain.PaymentMode(r.PaymentMode),
	}
	if r.VatPercentage != nil {
		override := *r.VatPercentage
		sale.VatOverride = &override
	}

	sale.Items = make([]domain.SaleItem, 0, len(r.Items))
	for _, item := range r.Items {
		sale.Items = append(sale.Items, domain.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return sale
}

// InsufficientStockResponse reports every product that could not cover the
// requested quantity.
type InsufficientStockResponse struct {
	Error      string             `json:"error"`
	Code       string             `json:"code"`
	Shortfalls []domain.Shortfall `json:"shortfalls"`
}
