package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Static is an in-memory catalog, usually seeded from a YAML file.
type Static struct {
	products map[string]*Product
	order    []string
}

// NewStatic builds a catalog from products. Later duplicates replace earlier ones.
func NewStatic(products []Product) *Static {
	s := &Static{products: make(map[string]*Product, len(products))}
	for i := range products {
		p := products[i]
		if _, ok := s.products[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = &p
	}
	return s
}

// seedFile is the YAML layout of a catalog seed.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Product     `yaml:",inline"`
	RetailPrice string `yaml:"retail_price"`
}

// LoadStatic reads a YAML seed file from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic parses a YAML seed document.
func ParseStatic(data []byte) (*Static, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	products := make([]Product, 0, len(seed.Products))
	for i, sp := range seed.Products {
		if sp.ID == "" {
			return nil, fmt.Errorf("catalog seed: product %d has no id", i)
		}
		p := sp.Product
		if sp.RetailPrice != "" {
			price, err := decimal.NewFromString(sp.RetailPrice)
			if err != nil {
				return nil, fmt.Errorf("catalog seed: product %s: invalid retail_price %q: %w", sp.ID, sp.RetailPrice, err)
			}
			p.RetailPrice = price
		}
		products = append(products, p)
	}
	return NewStatic(products), nil
}

// Product returns the product with the given ID.
func (s *Static) Product(_ context.Context, id string) (*Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

// List returns every product in seed order.
func (s *Static) List() []Product {
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.products[id])
	}
	return out
}
