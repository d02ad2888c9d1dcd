// Package catalog provides read-only product reference data used to enrich
// cart notifications and views. The cart engine never validates against it;
// front ends such as cartctl use CheckSelection before adding.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/slug"
)

// Product statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Color is a selectable product color.
type Color struct {
	Name string `json:"name" yaml:"name"`
	Hex  string `json:"hex" yaml:"hex"`
}

// Size is a selectable product size.
type Size struct {
	Label      string `json:"label" yaml:"label"`
	Dimensions string `json:"dimensions,omitempty" yaml:"dimensions"`
	Stock      int    `json:"stock" yaml:"stock"`
}

// Product is a catalog entry.
type Product struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	SKU         string          `json:"sku" yaml:"sku"`
	Category    string          `json:"category" yaml:"category"`
	RetailPrice decimal.Decimal `json:"retail_price" yaml:"-"`
	Colors      []Color         `json:"colors" yaml:"colors"`
	Sizes       []Size          `json:"sizes" yaml:"sizes"`
	Status      string          `json:"status" yaml:"status"`
}

// Color returns the color with the given name.
func (p *Product) Color(name string) (Color, bool) {
	for _, c := range p.Colors {
		if c.Name == name {
			return c, true
		}
	}
	return Color{}, false
}

// Size returns the size with the given label.
func (p *Product) Size(label string) (Size, bool) {
	for _, s := range p.Sizes {
		if s.Label == label {
			return s, true
		}
	}
	return Size{}, false
}

// CheckSelection returns an invalid-input error when color or size is not
// offered for p. A product listing no colors (or sizes) accepts any value.
func (p *Product) CheckSelection(color, size string) error {
	if _, ok := p.Color(color); !ok && len(p.Colors) > 0 {
		return apperrors.InvalidInput(fmt.Sprintf("%s is not offered in color %q", p.ID, color))
	}
	if _, ok := p.Size(size); !ok && len(p.Sizes) > 0 {
		return apperrors.InvalidInput(fmt.Sprintf("%s is not offered in size %q", p.ID, size))
	}
	return nil
}

// IsActive reports whether the product can be sold.
func (p *Product) IsActive() bool {
	return p.Status == "" || p.Status == StatusActive
}

// Catalog looks up products by ID. Implementations return an
// apperrors.ErrNotFound error for unknown IDs.
type Catalog interface {
	Product(ctx context.Context, id string) (*Product, error)
}

// DisplayName returns the product's name, or the ID when the catalog is nil
// or the lookup fails.
func DisplayName(ctx context.Context, c Catalog, id string) string {
	if c == nil {
		return id
	}
	p, err := c.Product(ctx, id)
	if err != nil || p == nil || p.Name == "" {
		return id
	}
	return p.Name
}

// VariantSKU extends a product SKU with the chosen color and size, for
// example "BS-001-SAGE-GREEN-QUEEN". An empty base yields "".
func VariantSKU(base, color, size string) string {
	if base == "" {
		return ""
	}
	parts := []string{base}
	for _, v := range []string{color, size} {
		if s := slug.Generate(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToUpper(strings.Join(parts, "-"))
}
