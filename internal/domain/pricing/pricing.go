// Package pricing computes order totals from line items and the current tax
// configuration.
//
// Amounts are kept at full decimal precision. Rounding happens only when a
// value is formatted for display.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/settings"
)

var hundred = decimal.NewFromInt(100)

// Item is a priced quantity.
type Item struct {
	Price    decimal.Decimal
	Quantity int
}

// Totals is the price breakdown of an order. It is derived from the items and
// the tax configuration and never edited directly.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
}

// Compute returns the totals for items under cfg.
//
// Tax and service charge are both percentages of the subtotal and only
// applied when their auto-apply flag is set. Discount is always zero. The
// total is floored at zero.
func Compute(items []Item, cfg settings.TaxConfiguration) (Totals, error) {
	if err := cfg.Validate(); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for i, it := range items {
		if it.Quantity < 0 {
			return Totals{}, poserr.InvalidInput("item %d: negative quantity %d", i, it.Quantity)
		}
		if it.Price.IsNegative() {
			return Totals{}, poserr.InvalidInput("item %d: negative unit price %s", i, it.Price)
		}
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	t := Totals{
		Subtotal:      subtotal,
		Tax:           decimal.Zero,
		ServiceCharge: decimal.Zero,
		Discount:      decimal.Zero,
	}
	if cfg.AutoApplyTax {
		t.Tax = subtotal.Mul(cfg.TaxRate).Div(hundred)
	}
	if cfg.AutoApplyServiceCharge {
		t.ServiceCharge = subtotal.Mul(cfg.ServiceChargeRate).Div(hundred)
	}

	t.Total = t.Subtotal.Add(t.Tax).Add(t.ServiceCharge).Sub(t.Discount)
	if t.Total.IsNegative() {
		t.Total = decimal.Zero
	}
	return t, nil
}
