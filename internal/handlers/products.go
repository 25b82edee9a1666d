// internal/handlers/products.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
	"github.com/amarachi/tillpoint-be/internal/core/ports"
	"github.com/amarachi/tillpoint-be/internal/handlers/middleware"
)

// ProductsHandler handles catalog-related HTTP requests
type ProductsHandler struct {
	service ports.ProductService
	logger  *slog.Logger
}

// NewProductsHandler creates a new products handler
func NewProductsHandler(service ports.ProductService, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "products")),
	}
}

// CreateProduct handles POST /api/v1/products
func (h *ProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	product := req.ToDomain()
	if err := h.service.CreateProduct(ctx, caller, product); err != nil {
		h.respondServiceError(w, r, err, "failed to create product")
		return
	}

	h.respondJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductsHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	product := req.ToDomain()
	if err := h.service.UpdateProduct(ctx, caller, productID, product); err != nil {
		h.respondServiceError(w, r, err, "failed to update product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.service.GetProduct(ctx, productID)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ListProducts handles GET /api/v1/products
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.ListProducts(ctx, h.parseListParams(r))
	if err != nil {
		h.respondServiceError(w, r, err, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// AdjustStock handles POST /api/v1/products/{id}/stock
func (h *ProductsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.service.AdjustStock(ctx, caller, productID, req.Delta)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to adjust stock")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ListLowStock handles GET /api/v1/products/low-stock
func (h *ProductsHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.service.ListLowStock(ctx)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to list low stock products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerFromContext(ctx)

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	if err := h.service.DeleteProduct(ctx, caller, productID); err != nil {
		h.respondServiceError(w, r, err, "failed to delete product")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message":    "Product deleted successfully",
		"product_id": productID.String(),
	})
}

// parseListParams parses query parameters for listing products
func (h *ProductsHandler) parseListParams(r *http.Request) ports.ProductListParams {
	params := ports.ProductListParams{
		Page:      1,
		PageSize:  50,
		SortBy:    "name",
		SortOrder: "asc",
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

	params.Search = q.Get("search")
	params.LowStock = q.Get("low_stock") == "true"

	if sortBy := q.Get("sort"); sortBy != "" {
		params.SortBy = sortBy
	}

	if order := q.Get("order"); order == "asc" || order == "desc" {
		params.SortOrder = order
	}

	return params
}

func (h *ProductsHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	ctx := r.Context()

	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "Not permitted")
	case errors.Is(err, domain.ErrProductNotFound):
		h.respondError(w, http.StatusNotFound, "Product not found")
	case errors.As(err, &validationErr):
		h.respondError(w, http.StatusBadRequest, validationErr.Error())
	default:
		if ise, ok := domain.IsInsufficientStock(err); ok {
			h.respondJSON(w, http.StatusConflict, InsufficientStockResponse{
				Error:      "Insufficient stock for the requested adjustment",
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

func (h *ProductsHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *ProductsHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request DTOs

// ProductRequest represents the request body for creating or updating a
// product. Quantity is only honored on create; stock changes afterwards go
// through the stock adjustment endpoint.
type ProductRequest struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity,omitempty"`
	LowStockMargin int             `json:"low_stock_margin,omitempty"`
}

// Validate validates the product request
func (r *ProductRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	if r.Quantity < 0 {
		return fmt.Errorf("quantity cannot be negative")
	}
	if r.LowStockMargin < 0 {
		return fmt.Errorf("low_stock_margin cannot be negative")
	}
	return nil
}

// ToDomain converts the request to a domain model
func (r *ProductRequest) ToDomain() *domain.Product {
	return &domain.Product{
		Name:           r.Name,
		Price:          r.Price,
		Quantity:       r.Quantity,
		LowStockMargin: r.LowStockMargin,
	}
}

// AdjustStockRequest represents a signed stock correction
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}
