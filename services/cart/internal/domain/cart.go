package domain

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DefaultTaxRate is the GST rate applied to the cart subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.18")

// Key identifies a cart line. Two items with the same key are the same line.
type Key struct {
	ProductID string `json:"product_id"`
	ColorName string `json:"color_name"`
	SizeLabel string `json:"size_label"`
}

// String returns the key in "product/color/size" form, used in logs and errors.
func (k Key) String() string {
	return k.ProductID + "/" + k.ColorName + "/" + k.SizeLabel
}

// LineItem represents one product+color+size selection in the cart.
type LineItem struct {
	ProductID string          `json:"product_id"`
	ColorName string          `json:"color_name"`
	SizeLabel string          `json:"size_label"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Key returns the identity key of the item.
func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, ColorName: i.ColorName, SizeLabel: i.SizeLabel}
}

// LineTotal returns unit price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the caller contract for an item entering the cart.
func (i LineItem) Validate() error {
	switch {
	case i.ProductID == "":
		return apperrors.InvalidInput("product id is required")
	case i.ColorName == "":
		return apperrors.InvalidInput("color name is required")
	case i.SizeLabel == "":
		return apperrors.InvalidInput("size label is required")
	case i.UnitPrice.IsNegative():
		return apperrors.InvalidInput("unit price must not be negative")
	case i.Quantity < 1:
		return apperrors.InvalidInput("quantity must be at least 1")
	}
	return nil
}

// Totals holds the values derived from the cart items. They are never stored.
type Totals struct {
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// Cart is an ordered list of line items with unique keys. Every transition
// returns a new Cart; the receiver's backing array is never written to.
type Cart struct {
	items []LineItem
}

// NewCart builds a cart from items, which must already satisfy the cart
// invariants. The slice is copied.
func NewCart(items []LineItem) Cart {
	return Cart{items: cloneItems(items)}
}

// Items returns a copy of the items in insertion order.
func (c Cart) Items() []LineItem {
	return cloneItems(c.items)
}

// Len returns the number of distinct lines.
func (c Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// FindItemIndex returns the index of the line with the given key, or -1.
func (c Cart) FindItemIndex(key Key) int {
	for i := range c.items {
		if c.items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Item returns the line with the given key.
func (c Cart) Item(key Key) (LineItem, bool) {
	idx := c.FindItemIndex(key)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.items[idx], true
}

// Add merges item into the cart. An existing line keeps its position and its
// captured unit price; only the quantity grows. New keys are appended.
func (c Cart) Add(item LineItem) Cart {
	items := cloneItems(c.items)
	if idx := c.FindItemIndex(item.Key()); idx >= 0 {
		items[idx].Quantity += item.Quantity
		return Cart{items: items}
	}
	return Cart{items: append(items, item)}
}

// Remove drops the line with the given key. Removing an absent key is a no-op.
func (c Cart) Remove(key Key) Cart {
	idx := c.FindItemIndex(key)
	if idx < 0 {
		return c
	}
	items := make([]LineItem, 0, len(c.items)-1)
	items = append(items, c.items[:idx]...)
	items = append(items, c.items[idx+1:]...)
	return Cart{items: items}
}

// SetQuantity sets an absolute quantity. A quantity of zero or less removes
// the line. An absent key is a no-op.
func (c Cart) SetQuantity(key Key, quantity int) Cart {
	if quantity <= 0 {
		return c.Remove(key)
	}
	idx := c.FindItemIndex(key)
	if idx < 0 {
		return c
	}
	items := cloneItems(c.items)
	items[idx].Quantity = quantity
	return Cart{items: items}
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Cart{}
}

// ItemCount returns the total number of units in the cart.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (c Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// Totals computes the derived totals at the given tax rate.
func (c Cart) Totals(taxRate decimal.Decimal) Totals {
	subtotal := c.Subtotal()
	tax := subtotal.Mul(taxRate)
	return Totals{
		ItemCount: c.ItemCount(),
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
	}
}

func cloneItems(items []LineItem) []LineItem {
	if len(items) == 0 {
		return []LineItem{}
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
