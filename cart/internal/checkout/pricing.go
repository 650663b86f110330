package checkout

import "github.com/shopspring/decimal"

var (
	TaxRate               = decimal.RequireFromString("0.08")
	FlatShippingFee       = decimal.RequireFromString("5.99")
	FreeShippingThreshold = decimal.NewFromInt(50)
)

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Price computes the order amounts for a cart subtotal. Shipping is waived
// only when the subtotal is strictly above the threshold.
func Price(subtotal decimal.Decimal) Summary {
	tax := subtotal.Mul(TaxRate).Round(2)
	shipping := FlatShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// MinorUnits converts an amount to the smallest currency unit, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
