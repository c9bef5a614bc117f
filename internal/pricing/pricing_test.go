package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		lines        []pricing.Line
		wantItems    string
		wantShipping string
		wantTax      string
		wantTotal    string
	}{
		{
			name:         "free_shipping_above_threshold",
			lines:        []pricing.Line{{UnitPrice: price("60"), Quantity: 2}},
			wantItems:    "120.00",
			wantShipping: "0.00",
			wantTax:      "18.00",
			wantTotal:    "138.00",
		},
		{
			name:         "flat_shipping_below_threshold",
			lines:        []pricing.Line{{UnitPrice: price("25"), Quantity: 1}, {UnitPrice: price("12.50"), Quantity: 2}},
			wantItems:    "50.00",
			wantShipping: "10.00",
			wantTax:      "7.50",
			wantTotal:    "67.50",
		},
		{
			name:         "threshold_is_exclusive",
			lines:        []pricing.Line{{UnitPrice: price("100.00"), Quantity: 1}},
			wantItems:    "100.00",
			wantShipping: "10.00",
			wantTax:      "15.00",
			wantTotal:    "125.00",
		},
		{
			name:         "tax_rounded_before_total",
			lines:        []pricing.Line{{UnitPrice: price("33.33"), Quantity: 1}},
			wantItems:    "33.33",
			wantShipping: "10.00",
			wantTax:      "5.00",
			wantTotal:    "48.33",
		},
		{
			name:         "no_lines",
			lines:        nil,
			wantItems:    "0.00",
			wantShipping: "10.00",
			wantTax:      "0.00",
			wantTotal:    "10.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pricing.Compute(tt.lines)

			assert.Equal(t, tt.wantItems, pricing.Fixed(b.Items))
			assert.Equal(t, tt.wantShipping, pricing.Fixed(b.Shipping))
			assert.Equal(t, tt.wantTax, pricing.Fixed(b.Tax))
			assert.Equal(t, tt.wantTotal, pricing.Fixed(b.Total))
			require.True(t, b.Total.Equal(b.Items.Add(b.Shipping).Add(b.Tax)), "total must equal the sum of its parts")
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(13800), pricing.MinorUnits(price("138.00")))
	assert.Equal(t, int64(6751), pricing.MinorUnits(price("67.505")))
	assert.Equal(t, int64(0), pricing.MinorUnits(decimal.Zero))
}
