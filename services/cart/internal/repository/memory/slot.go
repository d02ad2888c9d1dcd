package memory

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// SlotRepository is an in-process slot store. Values live as long as the process.
type SlotRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSlotRepository creates an empty in-memory slot repository.
func NewSlotRepository() *SlotRepository {
	return &SlotRepository{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (r *SlotRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	val, ok := r.values[key]
	if !ok {
		return "", apperrors.NotFound("slot", key)
	}
	return val, nil
}

// Set stores value under key.
func (r *SlotRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}

// Delete removes the value stored under key.
func (r *SlotRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

// Len returns the number of stored slots.
func (r *SlotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
