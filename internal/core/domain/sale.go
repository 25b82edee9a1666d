// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMode represents how a sale was paid for
type PaymentMode string

// Payment mode constants
const (
	PaymentCash         PaymentMode = "CASH"
	PaymentCard         PaymentMode = "CARD"
	PaymentBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentCrypto       PaymentMode = "CRYPTO"
	PaymentOther        PaymentMode = "OTHER"
)

// PaymentModes lists every accepted payment mode.
var PaymentModes = []PaymentMode{
	PaymentCash,
	PaymentCard,
	PaymentBankTransfer,
	PaymentCrypto,
	PaymentOther,
}

// Valid reports whether the payment mode is one of the accepted values.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentCrypto, PaymentOther:
		return true
	}
	return false
}

// Sale is an immutable financial record. Totals are computed once at
// creation; vat_percentage is the rate active at sale time and is never
// recomputed from current settings.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	CashierID     uuid.UUID       `json:"cashier_id"`
	CashierName   string          `json:"cashier_name,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VatAmount     decimal.Decimal `json:"vat_amount"`
	VatPercentage decimal.Decimal `json:"vat_percentage"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMode   PaymentMode     `json:"payment_mode"`
	Items         []SaleItem      `json:"items,omitempty"`

	// VatOverride, when set, replaces the configured VAT rate for this
	// sale. Zero is a valid override for a tax-exempt sale.
	VatOverride *decimal.Decimal `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// SaleItem is one line of a sale. Price is copied from the product at the
// moment of sale; later repricing of the product must not alter it.
type SaleItem struct {
	ID          uuid.UUID       `json:"id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// LineTotal returns price multiplied by quantity.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate performs domain validation on the sale
func (s *Sale) Validate() error {
	if s.CashierID == uuid.Nil {
		return fmt.Errorf("cashier_id is required")
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	if !s.PaymentMode.Valid() {
		return fmt.Errorf("unknown payment_mode: %s", s.PaymentMode)
	}
	for idx, item := range s.Items {
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
	return nil
}

// ItemsSubtotal returns the sum of line totals across the given items.
func ItemsSubtotal(items []SaleItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// MergeItems collapses duplicate product lines into one line per product,
// summing quantities. The first line's price wins for its product; duplicate
// lines within one request are assumed to carry the same unit price. Output
// is ordered by product id so downstream locking is deterministic.
func MergeItems(items []SaleItem) []SaleItem {
	byProduct := make(map[uuid.UUID]*SaleItem, len(items))
	order := make([]uuid.UUID, 0, len(items))

	for _, item := range items {
		if existing, ok := byProduct[item.ProductID]; ok {
			existing.Quantity += item.Quantity
			continue
		}
		merged := item
		byProduct[item.ProductID] = &merged
		order = append(order, item.ProductID)
	}

	sort.Slice(order, func(a, b int) bool {
		return order[a].String() < order[b].String()
	})

	out := make([]SaleItem, 0, len(order))
	for _, id := range order {
		out = append(out, *byProduct[id])
	}
	return out
}

// PrepareForStorage assigns identities and timestamps and computes the
// sale's totals from its items using the given VAT rate.
func (s *Sale) PrepareForStorage(vatPercentage decimal.Decimal) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	totals := CalculateSaleTotals(ItemsSubtotal(s.Items), vatPercentage)
	s.Subtotal = totals.Subtotal
	s.VatAmount = totals.VatAmount
	s.VatPercentage = totals.VatPercentage
	s.TotalAmount = totals.TotalAmount

	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	for idx := range s.Items {
		if s.Items[idx].ID == uuid.Nil {
			s.Items[idx].ID = uuid.New()
		}
		s.Items[idx].SaleID = s.ID
	}
}
