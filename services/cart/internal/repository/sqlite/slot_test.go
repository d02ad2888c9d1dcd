package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func openTestRepo(t *testing.T, path string) *SlotRepository {
	t.Helper()
	repo, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSlotRepository_GetSetDelete(t *testing.T) {
	repo := openTestRepo(t, ":memory:")
	ctx := context.Background()

	_, err := repo.Get(ctx, "cart:local")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "cart:local", "first"))
	require.NoError(t, repo.Set(ctx, "cart:local", "second"))

	got, err := repo.Get(ctx, "cart:local")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	require.NoError(t, repo.Delete(ctx, "cart:local"))
	_, err = repo.Get(ctx, "cart:local")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, repo.Delete(ctx, "cart:local"))
}

func TestSlotRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "cart:local", `{"version":1,"items":[]}`))
	require.NoError(t, first.Close())

	second := openTestRepo(t, path)
	got, err := second.Get(ctx, "cart:local")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[]}`, got)
	assert.NoError(t, second.Ping(ctx))
}

func TestSlotRepository_ClosedDatabase(t *testing.T) {
	repo, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.Get(context.Background(), "cart:local")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}
