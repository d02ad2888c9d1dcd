package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/services/cart/internal/repository"
)

// Mode selects how snapshots reach the storage slot.
type Mode string

const (
	// ModeSync writes inline before the mutation returns.
	ModeSync Mode = "sync"
	// ModeAsync hands the snapshot to a background writer. Only the newest
	// unwritten snapshot is kept.
	ModeAsync Mode = "async"
)

// writeTimeout bounds a single background slot write.
const writeTimeout = 5 * time.Second

// writer persists encoded snapshots. Failures are logged and counted, never
// returned: the in-memory state is already committed.
type writer interface {
	Write(ctx context.Context, payload string)
	Close(ctx context.Context) error
}

type syncWriter struct {
	slot   repository.SlotRepository
	key    string
	logger *slog.Logger
}

func (w *syncWriter) Write(ctx context.Context, payload string) {
	if err := w.slot.Set(ctx, w.key, payload); err != nil {
		PersistFailuresTotal.WithLabelValues(string(ModeSync)).Inc()
		w.logger.WarnContext(ctx, "failed to persist cart",
			slog.String("slot", w.key),
			slog.String("error", err.Error()),
		)
	}
}

func (w *syncWriter) Close(context.Context) error { return nil }

// asyncWriter is a single goroutine draining a one-element mailbox. A newer
// snapshot overwrites an unwritten older one, so the slot converges on the
// last committed state.
type asyncWriter struct {
	slot   repository.SlotRepository
	key    string
	logger *slog.Logger

	mu      sync.Mutex
	pending *string
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newAsyncWriter(slot repository.SlotRepository, key string, logger *slog.Logger) *asyncWriter {
	w := &asyncWriter{
		slot:   slot,
		key:    key,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *asyncWriter) Write(_ context.Context, payload string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if w.pending != nil {
		PersistSupersededTotal.Inc()
	}
	w.pending = &payload
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *asyncWriter) flush() {
	w.mu.Lock()
	payload := w.pending
	w.pending = nil
	w.mu.Unlock()

	if payload == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := w.slot.Set(ctx, w.key, *payload); err != nil {
		PersistFailuresTotal.WithLabelValues(string(ModeAsync)).Inc()
		w.logger.Warn("failed to persist cart",
			slog.String("slot", w.key),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops accepting snapshots, writes the pending one and waits for the
// goroutine to exit or ctx to end.
func (w *asyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.stop)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
