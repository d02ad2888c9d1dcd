package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/utafrali/storefront/services/cart/internal/domain"
)

func totalsFor(subtotal string) domain.Totals {
	sub := decimal.RequireFromString(subtotal)
	tax := sub.Mul(domain.DefaultTaxRate)
	return domain.Totals{ItemCount: 1, Subtotal: sub, Tax: tax, Total: sub.Add(tax)}
}

func TestShippingPolicy_Fee(t *testing.T) {
	policy := DefaultShippingPolicy()

	tests := []struct {
		subtotal string
		want     string
	}{
		{"0", "0"},
		{"1", "99"},
		{"4999.99", "99"},
		{"5000", "0"},
		{"12000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			got := policy.Fee(decimal.RequireFromString(tt.subtotal))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestShippingPolicy_NoThreshold(t *testing.T) {
	policy := ShippingPolicy{FlatFee: decimal.NewFromInt(49)}

	assert.Equal(t, "49", policy.Fee(decimal.NewFromInt(100000)).String())
	assert.True(t, policy.Remaining(decimal.NewFromInt(10)).IsZero())
}

func TestSummarize_BelowThreshold(t *testing.T) {
	s := Summarize(totalsFor("3000"), DefaultShippingPolicy())

	assert.Equal(t, "3000", s.Subtotal.String())
	assert.Equal(t, "540", s.Tax.String())
	assert.Equal(t, "99", s.Shipping.String())
	assert.Equal(t, "3639", s.GrandTotal.String())
	assert.False(t, s.FreeShipping)
	assert.Equal(t, "2000", s.FreeShippingRemaining.String())
}

func TestSummarize_AtThreshold(t *testing.T) {
	s := Summarize(totalsFor("5000"), DefaultShippingPolicy())

	assert.True(t, s.Shipping.IsZero())
	assert.Equal(t, "5900", s.GrandTotal.String())
	assert.True(t, s.FreeShipping)
	assert.True(t, s.FreeShippingRemaining.IsZero())
}

func TestSummarize_EmptyCart(t *testing.T) {
	s := Summarize(domain.Totals{}, DefaultShippingPolicy())

	assert.True(t, s.Shipping.IsZero())
	assert.True(t, s.GrandTotal.IsZero())
	assert.False(t, s.FreeShipping)
	assert.Equal(t, "5000", s.FreeShippingRemaining.String())
}

func TestSummary_Rounded(t *testing.T) {
	s := Summarize(totalsFor("59.97"), DefaultShippingPolicy()).Rounded()

	assert.Equal(t, "59.97", s.Subtotal.String())
	assert.Equal(t, "10.79", s.Tax.String())
	assert.Equal(t, "169.76", s.GrandTotal.String())
}

func TestRoundAndFormat(t *testing.T) {
	assert.Equal(t, "10.8", Round(decimal.RequireFromString("10.795")).String())
	assert.Equal(t, "₹3540.00", Format(decimal.NewFromInt(3540)))
	assert.Equal(t, "₹70.76", Format(Round(decimal.RequireFromString("70.7646"))))
}
