package order

import (
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums the lines and applies taxRatePercent. Tax is rounded
// to cents before it is added so Subtotal + Tax == Total holds exactly.
func ComputeTotals(items []Item, taxRatePercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}
	tax := subtotal.Mul(taxRatePercent).Div(hundred).Round(moneyPlaces)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
