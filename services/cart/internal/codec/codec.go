// Package codec encodes cart items for the persistent storage slot and
// decodes them back, migrating and validating older payload shapes.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/services/cart/internal/domain"
)

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 1

// ErrMalformed is returned when a payload cannot be interpreted as cart items.
var ErrMalformed = errors.New("malformed cart payload")

// envelope is the persisted shape of the cart items.
type envelope struct {
	Version int          `json:"version"`
	Items   []storedItem `json:"items"`
}

type storedItem struct {
	ProductID string          `json:"product_id"`
	ColorName string          `json:"color_name"`
	SizeLabel string          `json:"size_label"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// legacyItem is the browser-era shape: a bare array of product/color/size
// records with the price held on the product.
type legacyItem struct {
	Product struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		RetailPrice decimal.Decimal `json:"retailPrice"`
	} `json:"product"`
	Color struct {
		Name string `json:"name"`
	} `json:"color"`
	Size struct {
		Size string `json:"size"`
	} `json:"size"`
	Quantity int `json:"quantity"`
}

// Encode serializes items into the current envelope. Derived totals are not
// part of the payload.
func Encode(items []domain.LineItem) (string, error) {
	env := envelope{Version: CurrentVersion, Items: make([]storedItem, len(items))}
	for i, it := range items {
		env.Items[i] = storedItem(it)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal cart items: %w", err)
	}
	return string(data), nil
}

// Decode parses a payload written by Encode or by the legacy browser cart.
// Entries that fail validation are dropped and duplicate keys are merged, so
// the result always satisfies the cart invariants. Payloads that cannot be
// interpreted at all return ErrMalformed.
func Decode(payload string) ([]domain.LineItem, error) {
	trimmed := bytes.TrimSpace([]byte(payload))
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	var raw []domain.LineItem
	switch trimmed[0] {
	case '{':
		items, err := decodeEnvelope(trimmed)
		if err != nil {
			return nil, err
		}
		raw = items
	case '[':
		items, err := decodeLegacy(trimmed)
		if err != nil {
			return nil, err
		}
		raw = items
	default:
		return nil, fmt.Errorf("%w: unexpected payload shape", ErrMalformed)
	}

	return normalize(raw), nil
}

func decodeEnvelope(data []byte) ([]domain.LineItem, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, env.Version)
	}

	items := make([]domain.LineItem, len(env.Items))
	for i, it := range env.Items {
		items[i] = domain.LineItem(it)
	}
	return items, nil
}

func decodeLegacy(data []byte) ([]domain.LineItem, error) {
	var legacy []legacyItem
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	items := make([]domain.LineItem, len(legacy))
	for i, it := range legacy {
		items[i] = domain.LineItem{
			ProductID: it.Product.ID,
			ColorName: it.Color.Name,
			SizeLabel: it.Size.Size,
			UnitPrice: it.Product.RetailPrice,
			Quantity:  it.Quantity,
		}
	}
	return items, nil
}

// normalize drops invalid entries and folds duplicate keys into the first
// occurrence, keeping its position and price.
func normalize(items []domain.LineItem) []domain.LineItem {
	cart := domain.NewCart(nil)
	for _, it := range items {
		if it.Validate() != nil {
			continue
		}
		cart = cart.Add(it)
	}
	return cart.Items()
}
