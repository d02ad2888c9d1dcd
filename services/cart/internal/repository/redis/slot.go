package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DefaultKeyPrefix namespaces storefront slots inside a shared Redis database.
const DefaultKeyPrefix = "storefront:"

// SlotRepository implements repository.SlotRepository using Redis.
type SlotRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSlotRepository creates a new Redis-backed slot repository. A zero ttl
// keeps values until they are overwritten or deleted.
func NewSlotRepository(client *redis.Client, prefix string, ttl time.Duration) *SlotRepository {
	return &SlotRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves the value stored under key.
func (r *SlotRepository) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("slot", key)
		}
		return "", fmt.Errorf("redis get slot: %w", err)
	}
	return val, nil
}

// Set stores value under key with the configured TTL. Each write refreshes the TTL.
func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set slot: %w", err)
	}
	return nil
}

// Delete removes the value stored under key.
func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del slot: %w", err)
	}
	return nil
}
