package pricing

import "github.com/shopspring/decimal"

// Money is a decimal monetary amount in major units (e.g. 10.99).
type Money = decimal.Decimal

// DefaultTaxBps is the flat 8% sales tax applied to every cart.
const DefaultTaxBps = 800

var bpsDivisor = decimal.NewFromInt(10000)

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// Compute calculates subtotal, tax and total for the given items.
func Compute(items []Item, taxBps int) Summary {
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	tax := Tax(subtotal, taxBps)
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Tax returns amount * bps / 10000. Negative rates are treated as zero.
func Tax(amount Money, taxBps int) Money {
	if taxBps <= 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(int64(taxBps))).Div(bpsDivisor)
}

// Round2 rounds to cents for display.
func Round2(m Money) Money {
	return m.Round(2)
}
