package wishlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 1

// ErrMalformed is returned when a payload cannot be read as a wishlist.
var ErrMalformed = errors.New("malformed wishlist payload")

type envelope struct {
	Version    int      `json:"version"`
	ProductIDs []string `json:"product_ids"`
}

// Encode serializes product IDs in order.
func Encode(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(envelope{Version: CurrentVersion, ProductIDs: ids})
	if err != nil {
		return "", fmt.Errorf("marshal wishlist: %w", err)
	}
	return string(data), nil
}

// Decode reads an envelope or the legacy bare array of IDs. Empty IDs and
// repeats are dropped, keeping the first occurrence.
func Decode(payload string) ([]string, error) {
	trimmed := bytes.TrimSpace([]byte(payload))
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	var ids []string
	switch trimmed[0] {
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if env.Version != CurrentVersion {
			return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, env.Version)
		}
		ids = env.ProductIDs
	case '[':
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected payload shape", ErrMalformed)
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
