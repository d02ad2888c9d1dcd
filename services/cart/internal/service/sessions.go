package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// closeTimeout bounds the flush of one evicted store.
const closeTimeout = 5 * time.Second

// sessions keeps one value per user. Values unused for idleTTL are closed and
// dropped the next time any user is served; a zero idleTTL keeps them for the
// life of the process. A user whose value is being closed waits for the close
// to finish before a fresh one is created, so a pending write always lands
// before the slot is read again.
type sessions[T any] struct {
	idleTTL time.Duration
	open    func(userID string) T
	closeFn func(ctx context.Context, v T) error
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*sessionEntry[T]
	closing   map[string]chan struct{}
	lastSweep time.Time
}

type sessionEntry[T any] struct {
	value    T
	lastUsed time.Time
	refs     int
}

type evicted[T any] struct {
	userID string
	value  T
	done   chan struct{}
}

func newSessions[T any](
	idleTTL time.Duration,
	logger *slog.Logger,
	open func(string) T,
	closeFn func(context.Context, T) error,
) *sessions[T] {
	return &sessions[T]{
		idleTTL: idleTTL,
		open:    open,
		closeFn: closeFn,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*sessionEntry[T]),
		closing: make(map[string]chan struct{}),
	}
}

// acquire returns the value for userID, creating it when absent. The value is
// not evicted until release is called.
func (s *sessions[T]) acquire(ctx context.Context, userID string) (T, func(), error) {
	s.mu.Lock()
	for {
		done, ok := s.closing[userID]
		if !ok {
			break
		}
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			var zero T
			return zero, nil, ctx.Err()
		}
		s.mu.Lock()
	}

	now := s.now()
	stale := s.sweepLocked(now)

	e, ok := s.entries[userID]
	if !ok {
		e = &sessionEntry[T]{value: s.open(userID)}
		s.entries[userID] = e
	}
	e.refs++
	e.lastUsed = now
	s.mu.Unlock()

	s.closeEvicted(ctx, stale)

	release := func() {
		s.mu.Lock()
		e.refs--
		e.lastUsed = s.now()
		s.mu.Unlock()
	}
	return e.value, release, nil
}

// sweepLocked detaches idle, unreferenced entries at most once per idleTTL.
func (s *sessions[T]) sweepLocked(now time.Time) []evicted[T] {
	if s.idleTTL <= 0 || now.Sub(s.lastSweep) < s.idleTTL {
		return nil
	}
	s.lastSweep = now

	var stale []evicted[T]
	for userID, e := range s.entries {
		if e.refs > 0 || now.Sub(e.lastUsed) <= s.idleTTL {
			continue
		}
		done := make(chan struct{})
		delete(s.entries, userID)
		s.closing[userID] = done
		stale = append(stale, evicted[T]{userID: userID, value: e.value, done: done})
	}
	return stale
}

func (s *sessions[T]) closeEvicted(ctx context.Context, stale []evicted[T]) {
	if len(stale) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	for _, ev := range stale {
		if err := s.closeFn(ctx, ev.value); err != nil {
			s.logger.WarnContext(ctx, "failed to flush idle session",
				slog.String("user_id", ev.userID),
				slog.String("error", err.Error()),
			)
		}
		s.mu.Lock()
		delete(s.closing, ev.userID)
		s.mu.Unlock()
		close(ev.done)
	}
	s.logger.DebugContext(ctx, "evicted idle sessions", slog.Int("count", len(stale)))
}

// size reports how many users currently hold a value.
func (s *sessions[T]) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// closeAll closes every value and joins the errors.
func (s *sessions[T]) closeAll(ctx context.Context) error {
	s.mu.Lock()
	entries := make(map[string]T, len(s.entries))
	for userID, e := range s.entries {
		entries[userID] = e.value
	}
	s.mu.Unlock()

	var errs []error
	for userID, v := range entries {
		if err := s.closeFn(ctx, v); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}
