package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newSlotTestFixture(t *testing.T) (*SlotRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := database.NewMockPool(t)
	repo := NewSlotRepository(mock)
	return repo, mock
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestSlotRepository_Get_Success(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectQuery("SELECT payload FROM cart_slots WHERE slot_key =").
		WithArgs("cart:user-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(`{"version":1,"items":[]}`))

	got, err := repo.Get(context.Background(), "cart:user-1")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[]}`, got)
}

func TestSlotRepository_Get_NotFound(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectQuery("SELECT payload FROM cart_slots WHERE slot_key =").
		WithArgs("cart:missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "cart:missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSlotRepository_Get_QueryError(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectQuery("SELECT payload FROM cart_slots WHERE slot_key =").
		WithArgs("cart:user-1").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Get(context.Background(), "cart:user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "get slot")
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func TestSlotRepository_Set_Success(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectExec("INSERT INTO cart_slots").
		WithArgs("cart:user-1", "payload").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Set(context.Background(), "cart:user-1", "payload")
	assert.NoError(t, err)
}

func TestSlotRepository_Set_ExecError(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectExec("INSERT INTO cart_slots").
		WithArgs("cart:user-1", "payload").
		WillReturnError(errors.New("disk full"))

	err := repo.Set(context.Background(), "cart:user-1", "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set slot")
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestSlotRepository_Delete_Success(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectExec("DELETE FROM cart_slots WHERE slot_key =").
		WithArgs("cart:user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), "cart:user-1"))
}

func TestSlotRepository_Delete_Absent(t *testing.T) {
	repo, mock := newSlotTestFixture(t)

	mock.ExpectExec("DELETE FROM cart_slots WHERE slot_key =").
		WithArgs("cart:missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), "cart:missing"))
}
