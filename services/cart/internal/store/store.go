// Package store holds the in-memory cart that backs one shopper's session and
// keeps it in step with a persistent storage slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/codec"
	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/notify"
	"github.com/utafrali/storefront/services/cart/internal/repository"
)

// Notification titles.
const (
	TitleAdded   = "Added to cart"
	TitleRemoved = "Removed from cart"
)

// ErrNotHydrated is returned by mutations issued before Hydrate completes.
var ErrNotHydrated = apperrors.NotReady("cart has not been loaded yet")

// State is a read-only snapshot of the cart.
type State struct {
	Items  []domain.LineItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
}

// Option configures a Store.
type Option func(*Store)

// WithTaxRate overrides domain.DefaultTaxRate.
func WithTaxRate(rate decimal.Decimal) Option {
	return func(s *Store) { s.taxRate = rate }
}

// WithNotifier sets the sink for add/remove acknowledgements.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCatalog sets the catalog used to name products in notifications.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Store) { s.catalog = c }
}

// WithMode selects synchronous or asynchronous persistence.
func WithMode(m Mode) Option {
	return func(s *Store) { s.mode = m }
}

// WithOwner tags notifications with the shopper that owns the cart.
func WithOwner(owner string) Option {
	return func(s *Store) { s.owner = owner }
}

// Store is the single source of truth for one cart. All methods are safe for
// concurrent use; mutations are applied one at a time.
type Store struct {
	slot     repository.SlotRepository
	key      string
	owner    string
	taxRate  decimal.Decimal
	notifier notify.Notifier
	catalog  catalog.Catalog
	logger   *slog.Logger
	mode     Mode
	writer   writer

	mu       sync.Mutex
	cart     domain.Cart
	hydrated bool
}

// New creates a store persisting to key in slot. The store starts empty and
// not hydrated.
func New(slot repository.SlotRepository, key string, opts ...Option) *Store {
	s := &Store{
		slot:     slot,
		key:      key,
		taxRate:  domain.DefaultTaxRate,
		notifier: notify.Nop,
		logger:   slog.Default(),
		mode:     ModeSync,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.mode == ModeAsync {
		s.writer = newAsyncWriter(slot, key, s.logger)
	} else {
		s.writer = &syncWriter{slot: slot, key: key, logger: s.logger}
	}
	return s
}

// Key returns the slot key the store persists to.
func (s *Store) Key() string { return s.key }

// Hydrated reports whether Hydrate has run.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Hydrate loads the persisted items once. A missing slot or an unreadable
// payload leaves the cart empty. A failed read is returned and the store stays
// unhydrated, so the next call reads the slot again instead of letting a
// mutation overwrite data it never saw. Later calls return the current state
// without touching the slot.
func (s *Store) Hydrate(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return s.stateLocked(), nil
	}

	payload, err := s.slot.Get(ctx, s.key)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		s.hydrated = true
		HydrationsTotal.WithLabelValues(hydrateEmpty).Inc()
		return s.stateLocked(), nil
	case err != nil:
		HydrationsTotal.WithLabelValues(hydrateReadError).Inc()
		s.logger.WarnContext(ctx, "failed to read persisted cart",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
		return State{}, fmt.Errorf("read cart %s: %w", s.key, err)
	}
	s.hydrated = true

	items, err := codec.Decode(payload)
	if err != nil {
		HydrationsTotal.WithLabelValues(hydrateMalformed).Inc()
		s.logger.WarnContext(ctx, "discarding malformed persisted cart",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
		return s.stateLocked(), nil
	}

	s.cart = domain.NewCart(items)
	HydrationsTotal.WithLabelValues(hydrateLoaded).Inc()
	s.logger.DebugContext(ctx, "cart hydrated",
		slog.String("slot", s.key),
		slog.Int("lines", s.cart.Len()),
	)
	return s.stateLocked(), nil
}

// AddItem merges item into the cart: an existing line with the same key grows
// by item.Quantity and keeps its price, otherwise the item is appended.
func (s *Store) AddItem(ctx context.Context, item domain.LineItem) (State, error) {
	if err := item.Validate(); err != nil {
		return State{}, err
	}

	state, err := s.mutate(ctx, "add", func(c domain.Cart) (domain.Cart, bool) {
		return c.Add(item), true
	})
	if err != nil {
		return State{}, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Kind:        notify.KindCartItemAdded,
		Owner:       s.owner,
		Title:       TitleAdded,
		Description: fmt.Sprintf("%s - %s, %s", catalog.DisplayName(ctx, s.catalog, item.ProductID), item.ColorName, item.SizeLabel),
		ProductID:   item.ProductID,
	})
	return state, nil
}

// RemoveItem drops the line with the given key. Removing an absent line
// changes nothing and sends no notification.
func (s *Store) RemoveItem(ctx context.Context, productID, colorName, sizeLabel string) (State, error) {
	key := domain.Key{ProductID: productID, ColorName: colorName, SizeLabel: sizeLabel}

	var removed bool
	state, err := s.mutate(ctx, "remove", func(c domain.Cart) (domain.Cart, bool) {
		if c.FindItemIndex(key) < 0 {
			return c, false
		}
		removed = true
		return c.Remove(key), true
	})
	if err != nil {
		return State{}, err
	}

	if removed {
		s.notifyRemoved(ctx, key)
	}
	return state, nil
}

// SetQuantity sets an absolute quantity. A quantity of zero or less is a
// RemoveItem.
func (s *Store) SetQuantity(ctx context.Context, productID, colorName, sizeLabel string, quantity int) (State, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID, colorName, sizeLabel)
	}

	key := domain.Key{ProductID: productID, ColorName: colorName, SizeLabel: sizeLabel}
	return s.mutate(ctx, "set_quantity", func(c domain.Cart) (domain.Cart, bool) {
		if c.FindItemIndex(key) < 0 {
			return c, false
		}
		return c.SetQuantity(key, quantity), true
	})
}

// Clear empties the cart and persists the empty sequence.
func (s *Store) Clear(ctx context.Context) (State, error) {
	return s.mutate(ctx, "clear", func(c domain.Cart) (domain.Cart, bool) {
		return c.Clear(), true
	})
}

// Items returns a copy of the current items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// Totals computes the derived totals from the current items.
func (s *Store) Totals() domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals(s.taxRate)
}

// State returns a snapshot of items and totals taken under one lock.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Close flushes any pending asynchronous write.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.Close(ctx)
}

// mutate applies fn under the lock and persists the result when fn reports a
// change. Persistence failures are absorbed by the writer.
func (s *Store) mutate(ctx context.Context, op string, fn func(domain.Cart) (domain.Cart, bool)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hydrated {
		return State{}, ErrNotHydrated
	}

	next, changed := fn(s.cart)
	if !changed {
		return s.stateLocked(), nil
	}
	s.cart = next
	MutationsTotal.WithLabelValues(op).Inc()

	payload, err := codec.Encode(s.cart.Items())
	if err != nil {
		PersistFailuresTotal.WithLabelValues(string(s.mode)).Inc()
		s.logger.ErrorContext(ctx, "failed to encode cart",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
		return s.stateLocked(), nil
	}
	s.writer.Write(ctx, payload)

	return s.stateLocked(), nil
}

func (s *Store) stateLocked() State {
	return State{
		Items:  s.cart.Items(),
		Totals: s.cart.Totals(s.taxRate),
	}
}

func (s *Store) notifyRemoved(ctx context.Context, key domain.Key) {
	s.notifier.Notify(ctx, notify.Notification{
		Kind:        notify.KindCartItemRemoved,
		Owner:       s.owner,
		Title:       TitleRemoved,
		Description: catalog.DisplayName(ctx, s.catalog, key.ProductID),
		ProductID:   key.ProductID,
	})
}
