// internal/core/domain/vat.go
package domain

import "github.com/shopspring/decimal"

// SaleTotals is the result of applying a VAT rate to a subtotal.
type SaleTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	VatAmount     decimal.Decimal `json:"vat_amount"`
	VatPercentage decimal.Decimal `json:"vat_percentage"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// CalculateVatAmount returns subtotal * vatPercentage / 100.
// Arithmetic is exact decimal; no rounding is applied here. Callers that
// need a currency-rounded figure round at the presentation boundary.
func CalculateVatAmount(subtotal, vatPercentage decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(vatPercentage).Div(decimal.NewFromInt(100))
}

// CalculateSaleTotals computes the tax breakdown for a subtotal. Pure and
// deterministic: totalAmount is always subtotal + vatAmount, and the rate
// used is echoed back so callers can persist it as a snapshot.
func CalculateSaleTotals(subtotal, vatPercentage decimal.Decimal) SaleTotals {
	vatAmount := CalculateVatAmount(subtotal, vatPercentage)
	return SaleTotals{
		Subtotal:      subtotal,
		VatAmount:     vatAmount,
		VatPercentage: vatPercentage,
		TotalAmount:   subtotal.Add(vatAmount),
	}
}
