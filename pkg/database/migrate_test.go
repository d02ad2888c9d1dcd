package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createSlotsSQL = "CREATE TABLE IF NOT EXISTS cart_slots (slot_key TEXT PRIMARY KEY)"

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"000001_create_cart_slots.up.sql":   {Data: []byte(createSlotsSQL)},
		"000001_create_cart_slots.down.sql": {Data: []byte("DROP TABLE cart_slots")},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func expectTrackingTable(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
}

func expectApplied(mock pgxmock.PgxPoolIface, version string, applied bool) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs(version).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(applied))
}

func TestRunMigrations_AppliesUpFilesOnly(t *testing.T) {
	mock := NewMockPool(t)

	expectTrackingTable(mock)
	expectApplied(mock, "000001_create_cart_slots.up.sql", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(createSlotsSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")).
		WithArgs("000001_create_cart_slots.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), mock, migrationFS(), discardLogger()))
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	mock := NewMockPool(t)

	expectTrackingTable(mock)
	expectApplied(mock, "000001_create_cart_slots.up.sql", true)

	require.NoError(t, RunMigrations(context.Background(), mock, migrationFS(), discardLogger()))
}

func TestRunMigrations_SQLErrorRollsBack(t *testing.T) {
	mock := NewMockPool(t)

	expectTrackingTable(mock)
	expectApplied(mock, "000001_create_cart_slots.up.sql", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(createSlotsSQL)).WillReturnError(errors.New(`syntax error at or near "TABLE"`))
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, migrationFS(), discardLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 000001_create_cart_slots.up.sql")
}
