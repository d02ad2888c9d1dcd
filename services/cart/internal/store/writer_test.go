package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/utafrali/storefront/services/cart/internal/codec"
	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/repository/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedSlot blocks every Set until the gate is opened and records the order
// in which values were written.
type gatedSlot struct {
	*memory.SlotRepository
	gate chan struct{}

	mu     sync.Mutex
	writes []string
}

func newGatedSlot() *gatedSlot {
	return &gatedSlot{SlotRepository: memory.NewSlotRepository(), gate: make(chan struct{})}
}

func (g *gatedSlot) Set(ctx context.Context, key, value string) error {
	<-g.gate
	g.mu.Lock()
	g.writes = append(g.writes, value)
	g.mu.Unlock()
	return g.SlotRepository.Set(ctx, key, value)
}

func (g *gatedSlot) Writes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.writes...)
}

func TestAsync_LastWriteWins(t *testing.T) {
	slot := newGatedSlot()
	s := New(slot, testKey, WithLogger(testLogger()), WithMode(ModeAsync))
	s.Hydrate(context.Background())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := s.AddItem(ctx, line("P1", "White", "Queen", 100, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, 20, s.Totals().ItemCount, "in-memory state never waits for storage")

	close(slot.gate)
	require.NoError(t, s.Close(ctx))

	writes := slot.Writes()
	require.NotEmpty(t, writes)
	assert.Less(t, len(writes), 20, "superseded snapshots are dropped")

	items := persisted(t, slot.SlotRepository)
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].Quantity)
}

func TestAsync_CloseFlushesPending(t *testing.T) {
	slot := memory.NewSlotRepository()
	s := New(slot, testKey, WithLogger(testLogger()), WithMode(ModeAsync))
	s.Hydrate(context.Background())

	_, err := s.AddItem(context.Background(), line("P1", "White", "Queen", 1000, 2))
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, []domain.LineItem{line("P1", "White", "Queen", 1000, 2)}, persisted(t, slot))
}

func TestAsync_WritesAfterCloseAreDropped(t *testing.T) {
	slot := memory.NewSlotRepository()
	s := New(slot, testKey, WithLogger(testLogger()), WithMode(ModeAsync))
	s.Hydrate(context.Background())
	require.NoError(t, s.Close(context.Background()))

	_, err := s.AddItem(context.Background(), line("P1", "White", "Queen", 1000, 1))
	require.NoError(t, err)

	assert.Equal(t, 0, slot.Len())
	assert.Len(t, s.Items(), 1)
}

func TestAsync_CloseIsIdempotent(t *testing.T) {
	s := New(memory.NewSlotRepository(), testKey, WithLogger(testLogger()), WithMode(ModeAsync))

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
}

func TestAsync_CloseRespectsContext(t *testing.T) {
	slot := newGatedSlot()
	s := New(slot, testKey, WithLogger(testLogger()), WithMode(ModeAsync))
	s.Hydrate(context.Background())

	_, err := s.AddItem(context.Background(), line("P1", "White", "Queen", 1000, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)

	close(slot.gate)
	require.NoError(t, s.Close(context.Background()))
}

func TestAsync_FailureIsDropped(t *testing.T) {
	s := New(failingSlot{}, testKey, WithLogger(testLogger()), WithMode(ModeAsync))
	s.Hydrate(context.Background())

	state, err := s.AddItem(context.Background(), line("P1", "White", "Queen", 1000, 1))
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))

	assert.Len(t, state.Items, 1)
}

func TestSync_WritesInline(t *testing.T) {
	slot := memory.NewSlotRepository()
	s := New(slot, testKey, WithLogger(testLogger()))
	s.Hydrate(context.Background())

	_, err := s.AddItem(context.Background(), line("P1", "White", "Queen", 1000, 1))
	require.NoError(t, err)

	payload, err := slot.Get(context.Background(), testKey)
	require.NoError(t, err)
	items, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	require.NoError(t, s.Close(context.Background()))
}
