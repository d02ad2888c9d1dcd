package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/notify"
	"github.com/utafrali/storefront/services/cart/internal/repository"
	"github.com/utafrali/storefront/services/cart/internal/wishlist"
)

// WishlistSlotPrefix prefixes the per-user slot key of a wishlist.
const WishlistSlotPrefix = "wishlist:"

// AddWishlistItemInput holds the parameters for saving a product.
type AddWishlistItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
}

// WishlistView is the wishlist as returned to clients.
type WishlistView struct {
	UserID     string   `json:"user_id"`
	ProductIDs []string `json:"product_ids"`
}

// WishlistService owns one wishlist per user.
type WishlistService struct {
	slot     repository.SlotRepository
	catalog  catalog.Catalog
	notifier notify.Notifier
	logger   *slog.Logger

	stores *sessions[*wishlist.Store]
}

// NewWishlistService creates a new wishlist service. catalog may be nil.
// Wishlists unused for idleTTL are dropped from memory; zero keeps them.
func NewWishlistService(
	slot repository.SlotRepository,
	cat catalog.Catalog,
	notifier notify.Notifier,
	logger *slog.Logger,
	idleTTL time.Duration,
) *WishlistService {
	if notifier == nil {
		notifier = notify.Nop
	}
	s := &WishlistService{
		slot:     slot,
		catalog:  cat,
		notifier: notifier,
		logger:   logger,
	}
	// Wishlists persist inline, so dropping one needs no flush.
	s.stores = newSessions(idleTTL, logger, s.newStore,
		func(context.Context, *wishlist.Store) error { return nil })
	return s
}

func (s *WishlistService) newStore(userID string) *wishlist.Store {
	return wishlist.New(s.slot, WishlistSlotPrefix+userID,
		wishlist.WithOwner(userID),
		wishlist.WithNotifier(s.notifier),
		wishlist.WithCatalog(s.catalog),
		wishlist.WithLogger(s.logger),
	)
}

func (s *WishlistService) acquire(ctx context.Context, userID string) (*wishlist.Store, func(), error) {
	if userID == "" {
		return nil, nil, apperrors.InvalidInput("user id is required")
	}

	st, release, err := s.stores.acquire(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hydrateTimeout)
	defer cancel()
	if _, err := st.Hydrate(hctx); err != nil {
		release()
		s.logger.ErrorContext(ctx, "failed to load wishlist",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, nil, apperrors.ServiceUnavailable("wishlist storage is unavailable, try again")
	}
	return st, release, nil
}

// GetWishlist returns the saved product IDs in the order they were added.
func (s *WishlistService) GetWishlist(ctx context.Context, userID string) (*WishlistView, error) {
	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	return &WishlistView{UserID: userID, ProductIDs: st.Items()}, nil
}

// AddItem saves a product. Saving it twice keeps one entry.
func (s *WishlistService) AddItem(ctx context.Context, userID string, input AddWishlistItemInput) (*WishlistView, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	ids, err := st.Add(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product added to wishlist",
		slog.String("user_id", userID),
		slog.String("product_id", input.ProductID),
	)
	return &WishlistView{UserID: userID, ProductIDs: ids}, nil
}

// RemoveItem forgets a saved product.
func (s *WishlistService) RemoveItem(ctx context.Context, userID, productID string) (*WishlistView, error) {
	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	ids, err := st.Remove(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product removed from wishlist",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
	)
	return &WishlistView{UserID: userID, ProductIDs: ids}, nil
}

// Clear forgets every saved product.
func (s *WishlistService) Clear(ctx context.Context, userID string) (*WishlistView, error) {
	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := st.Clear(ctx); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wishlist cleared",
		slog.String("user_id", userID),
	)
	return &WishlistView{UserID: userID, ProductIDs: []string{}}, nil
}
