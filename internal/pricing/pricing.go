// Package pricing computes the authoritative price breakdown of an order.
package pricing

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is strictly exclusive: an items total of exactly 100 still pays shipping.
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.NewFromInt(10)
	TaxRate               = decimal.RequireFromString("0.15")
)

// Line is one priced line of an order.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown holds the four server-computed amounts of an order, each rounded to 2 places.
type Breakdown struct {
	Items    decimal.Decimal `json:"items_price"`
	Shipping decimal.Decimal `json:"shipping_price"`
	Tax      decimal.Decimal `json:"tax_price"`
	Total    decimal.Decimal `json:"total_price"`
}

// Compute sums the lines and derives shipping, tax and total.
// The items sum is kept unrounded until output; tax is rounded before it is added to the total.
func Compute(lines []Line) Breakdown {
	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := FlatShipping
	if items.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := items.Mul(TaxRate).Round(2)
	total := items.Add(shipping).Add(tax).Round(2)

	return Breakdown{
		Items:    items.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax,
		Total:    total,
	}
}

// Fixed renders an amount the way API responses carry money: two decimals, always.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MinorUnits converts an amount to the gateway's integer minor units (cents, paise).
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
