package repository

import (
	"context"
)

// SlotRepository is a string-keyed, string-valued durable storage slot.
type SlotRepository interface {
	// Get returns the value stored under key, or an error wrapping
	// apperrors.ErrNotFound when nothing is stored.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the value stored under key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
