package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// SlotRepository implements repository.SlotRepository on the cart_slots table.
type SlotRepository struct {
	db database.DBTX
}

// NewSlotRepository creates a new PostgreSQL-backed slot repository.
func NewSlotRepository(db database.DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

// Get retrieves the payload stored under key.
func (r *SlotRepository) Get(ctx context.Context, key string) (_ string, err error) {
	query := `SELECT payload FROM cart_slots WHERE slot_key = $1`

	ctx, end := database.TraceQuery(ctx, "GetSlot", query)
	defer func() { end(err) }()

	var payload string
	if err := r.db.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("slot", key)
		}
		return "", fmt.Errorf("get slot: %w", err)
	}

	return payload, nil
}

// Set upserts the payload stored under key.
func (r *SlotRepository) Set(ctx context.Context, key, value string) (err error) {
	query := `
		INSERT INTO cart_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (slot_key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()`

	ctx, end := database.TraceQuery(ctx, "SetSlot", query)
	defer func() { end(err) }()

	if _, err := r.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set slot: %w", err)
	}

	return nil
}

// Delete removes the row for key. Deleting an absent key is not an error.
func (r *SlotRepository) Delete(ctx context.Context, key string) (err error) {
	query := `DELETE FROM cart_slots WHERE slot_key = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteSlot", query)
	defer func() { end(err) }()

	if _, err := r.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	return nil
}
