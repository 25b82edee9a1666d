// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for the sale workflow. Handlers map these onto HTTP
// status codes; services wrap them with %w so errors.Is still matches.
var (
	ErrUnauthorized    = errors.New("no caller identity")
	ErrForbidden       = errors.New("caller role not permitted")
	ErrSaleNotFound    = errors.New("sale not found")
	ErrProductNotFound = errors.New("product not found")
)

// ValidationError reports malformed input, detected before any transaction
// is opened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Shortfall describes one product that cannot satisfy a requested quantity.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InsufficientStockError carries the full shortfall list for a failed
// reservation, not just the first offender. It is also used when a
// quantity check constraint fires at the store level, since that is the
// same business condition surfacing through a lower layer.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s requested=%d available=%d",
			s.ProductID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// IsInsufficientStock reports whether err is (or wraps) an
// InsufficientStockError and returns it if so.
func IsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
