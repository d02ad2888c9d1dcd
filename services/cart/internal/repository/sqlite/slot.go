package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS cart_slots (
	slot_key   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SlotRepository implements repository.SlotRepository on a local SQLite file.
type SlotRepository struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures the
// slot table exists. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*SlotRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cart_slots table: %w", err)
	}

	return &SlotRepository{db: db}, nil
}

// Get retrieves the payload stored under key.
func (r *SlotRepository) Get(ctx context.Context, key string) (string, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM cart_slots WHERE slot_key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFound("slot", key)
		}
		return "", fmt.Errorf("sqlite get slot: %w", err)
	}
	return payload, nil
}

// Set upserts the payload stored under key.
func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_slots (slot_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (slot_key) DO UPDATE
		SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite set slot: %w", err)
	}
	return nil
}

// Delete removes the row for key.
func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_slots WHERE slot_key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete slot: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SlotRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying database.
func (r *SlotRepository) Close() error {
	return r.db.Close()
}
