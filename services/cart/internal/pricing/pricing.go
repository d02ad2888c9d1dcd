// Package pricing derives the checkout summary shown next to a cart. Shipping
// is a presentation concern and is never applied inside the cart store.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/services/cart/internal/domain"
)

// Defaults observed on the storefront cart and checkout pages.
var (
	DefaultFlatFee       = decimal.NewFromInt(99)
	DefaultFreeThreshold = decimal.NewFromInt(5000)
)

// ShippingPolicy charges a flat fee unless the subtotal reaches FreeThreshold.
// A zero FreeThreshold disables the waiver.
type ShippingPolicy struct {
	FlatFee       decimal.Decimal
	FreeThreshold decimal.Decimal
}

// DefaultShippingPolicy returns the ₹99 fee waived from ₹5000.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FlatFee: DefaultFlatFee, FreeThreshold: DefaultFreeThreshold}
}

// Fee returns the shipping charge for a subtotal. Empty carts ship for free.
func (p ShippingPolicy) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || p.qualifies(subtotal) {
		return decimal.Zero
	}
	return p.FlatFee
}

// Remaining returns how much more must be spent to qualify for free shipping.
func (p ShippingPolicy) Remaining(subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeThreshold.IsZero() || p.qualifies(subtotal) {
		return decimal.Zero
	}
	return p.FreeThreshold.Sub(subtotal)
}

func (p ShippingPolicy) qualifies(subtotal decimal.Decimal) bool {
	return !p.FreeThreshold.IsZero() && subtotal.GreaterThanOrEqual(p.FreeThreshold)
}

// Summary is the order summary block rendered by the cart and checkout views.
type Summary struct {
	ItemCount             int             `json:"item_count"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	Tax                   decimal.Decimal `json:"tax"`
	Shipping              decimal.Decimal `json:"shipping"`
	GrandTotal            decimal.Decimal `json:"grand_total"`
	FreeShipping          bool            `json:"free_shipping"`
	FreeShippingRemaining decimal.Decimal `json:"free_shipping_remaining"`
}

// Summarize adds shipping to the cart totals.
func Summarize(totals domain.Totals, policy ShippingPolicy) Summary {
	shipping := policy.Fee(totals.Subtotal)
	return Summary{
		ItemCount:             totals.ItemCount,
		Subtotal:              totals.Subtotal,
		Tax:                   totals.Tax,
		Shipping:              shipping,
		GrandTotal:            totals.Total.Add(shipping),
		FreeShipping:          totals.Subtotal.IsPositive() && shipping.IsZero(),
		FreeShippingRemaining: policy.Remaining(totals.Subtotal),
	}
}

// Rounded returns a copy with every amount rounded to two places for display.
func (s Summary) Rounded() Summary {
	s.Subtotal = Round(s.Subtotal)
	s.Tax = Round(s.Tax)
	s.Shipping = Round(s.Shipping)
	s.GrandTotal = Round(s.GrandTotal)
	s.FreeShippingRemaining = Round(s.FreeShippingRemaining)
	return s
}

// Round rounds half away from zero to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount with two decimal places and the rupee sign.
func Format(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}
