// Package wishlist keeps a shopper's saved products: an ordered set of
// product IDs persisted to a storage slot the same way the cart is.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/notify"
	"github.com/utafrali/storefront/services/cart/internal/repository"
)

// Notification titles.
const (
	TitleAdded   = "Added to wishlist"
	TitleRemoved = "Removed from wishlist"
)

// ErrNotHydrated is returned by mutations issued before Hydrate.
var ErrNotHydrated = apperrors.NotReady("wishlist has not been loaded yet")

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCatalog names products in notifications.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Store) { s.catalog = c }
}

// WithOwner tags notifications with the shopper.
func WithOwner(owner string) Option {
	return func(s *Store) { s.owner = owner }
}

// Store holds one wishlist.
type Store struct {
	slot     repository.SlotRepository
	key      string
	owner    string
	notifier notify.Notifier
	catalog  catalog.Catalog
	logger   *slog.Logger

	mu       sync.Mutex
	ids      []string
	hydrated bool
}

// New creates a wishlist persisted under key.
func New(slot repository.SlotRepository, key string, opts ...Option) *Store {
	s := &Store{
		slot:     slot,
		key:      key,
		notifier: notify.Nop,
		logger:   slog.Default(),
		ids:      []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted IDs once. Absent or malformed data leaves the
// wishlist empty. A failed read is returned and the store stays unhydrated.
func (s *Store) Hydrate(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return slices.Clone(s.ids), nil
	}

	payload, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.hydrated = true
		return slices.Clone(s.ids), nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read persisted wishlist",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("read wishlist %s: %w", s.key, err)
	}
	s.hydrated = true

	ids, err := Decode(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding malformed persisted wishlist",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
		return slices.Clone(s.ids), nil
	}
	s.ids = ids
	return slices.Clone(s.ids), nil
}

// Add appends productID unless it is already present. The acknowledgement is
// sent either way.
func (s *Store) Add(ctx context.Context, productID string) ([]string, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return nil, ErrNotHydrated
	}
	if !slices.Contains(s.ids, productID) {
		s.ids = append(slices.Clone(s.ids), productID)
		s.persistLocked(ctx)
	}
	ids := slices.Clone(s.ids)
	s.mu.Unlock()

	s.notify(ctx, notify.KindWishlistItemAdded, TitleAdded, productID)
	return ids, nil
}

// Remove drops productID. Absent IDs change nothing.
func (s *Store) Remove(ctx context.Context, productID string) ([]string, error) {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return nil, ErrNotHydrated
	}
	idx := slices.Index(s.ids, productID)
	if idx >= 0 {
		s.ids = slices.Delete(slices.Clone(s.ids), idx, idx+1)
		s.persistLocked(ctx)
	}
	ids := slices.Clone(s.ids)
	s.mu.Unlock()

	if idx >= 0 {
		s.notify(ctx, notify.KindWishlistItemRemoved, TitleRemoved, productID)
	}
	return ids, nil
}

// Clear forgets every saved product and deletes the slot. An absent slot
// hydrates as an empty wishlist, so nothing is written in its place.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hydrated {
		return ErrNotHydrated
	}
	s.ids = []string{}
	if err := s.slot.Delete(ctx, s.key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete persisted wishlist",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Contains reports whether productID is saved.
func (s *Store) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, productID)
}

// Items returns the saved IDs in the order they were added.
func (s *Store) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

func (s *Store) persistLocked(ctx context.Context) {
	payload, err := Encode(s.ids)
	if err == nil {
		err = s.slot.Set(ctx, s.key, payload)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist wishlist",
			slog.String("slot", s.key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) notify(ctx context.Context, kind notify.Kind, title, productID string) {
	s.notifier.Notify(ctx, notify.Notification{
		Kind:        kind,
		Owner:       s.owner,
		Title:       title,
		Description: catalog.DisplayName(ctx, s.catalog, productID),
		ProductID:   productID,
	})
}
