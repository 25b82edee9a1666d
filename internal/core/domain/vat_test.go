package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarachi/tillpoint-be/internal/core/domain"
)

func TestCalculateSaleTotals(t *testing.T) {
	tests := []struct {
		name          string
		subtotal      string
		vatPercentage string
		wantVat       string
		wantTotal     string
	}{
		{
			name:          "standard_rate",
			subtotal:      "1000",
			vatPercentage: "7.5",
			wantVat:       "75",
			wantTotal:     "1075",
		},
		{
			name:          "zero_subtotal",
			subtotal:      "0",
			vatPercentage: "7.5",
			wantVat:       "0",
			wantTotal:     "0",
		},
		{
			name:          "zero_rate",
			subtotal:      "250.40",
			vatPercentage: "0",
			wantVat:       "0",
			wantTotal:     "250.40",
		},
		{
			name:          "fractional_amounts_stay_exact",
			subtotal:      "19.99",
			vatPercentage: "7.5",
			wantVat:       "1.49925",
			wantTotal:     "21.48925",
		},
		{
			name:          "high_rate",
			subtotal:      "100",
			vatPercentage: "20",
			wantVat:       "20",
			wantTotal:     "120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal := decimal.RequireFromString(tt.subtotal)
			rate := decimal.RequireFromString(tt.vatPercentage)

			totals := domain.CalculateSaleTotals(subtotal, rate)

			assert.True(t, totals.Subtotal.Equal(subtotal))
			assert.True(t, totals.VatPercentage.Equal(rate))
			assert.True(t, totals.VatAmount.Equal(decimal.RequireFromString(tt.wantVat)),
				"vat: want %s got %s", tt.wantVat, totals.VatAmount)
			assert.True(t, totals.TotalAmount.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total: want %s got %s", tt.wantTotal, totals.TotalAmount)
		})
	}
}

// The totals law: totalAmount == subtotal + vatAmount for any inputs, and
// the two exported helpers agree with each other.
func TestCalculateSaleTotals_TotalsLaw(t *testing.T) {
	subtotals := []string{"0", "0.01", "19.99", "1000", "123456.789"}
	rates := []string{"0", "5", "7.5", "12.345", "20"}

	for _, s := range subtotals {
		for _, r := range rates {
			subtotal := decimal.RequireFromString(s)
			rate := decimal.RequireFromString(r)

			totals := domain.CalculateSaleTotals(subtotal, rate)
			vat := domain.CalculateVatAmount(subtotal, rate)

			require.True(t, totals.VatAmount.Equal(vat),
				"subtotal=%s rate=%s", s, r)
			require.True(t, totals.TotalAmount.Equal(subtotal.Add(vat)),
				"subtotal=%s rate=%s", s, r)
		}
	}
}
