package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/notify"
	"github.com/utafrali/storefront/services/cart/internal/pricing"
	"github.com/utafrali/storefront/services/cart/internal/repository"
	"github.com/utafrali/storefront/services/cart/internal/store"
)

// MaxQuantityPerRequest caps the quantity a single add or update may set.
const MaxQuantityPerRequest = 100

// CartSlotPrefix prefixes the per-user slot key of a cart.
const CartSlotPrefix = "cart:"

// hydrateTimeout bounds the first read of a user's slot.
const hydrateTimeout = 5 * time.Second

// AddItemInput holds the parameters for adding an item to the cart. When
// UnitPrice is empty the catalog retail price is used.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	ColorName string `json:"color_name" validate:"required"`
	SizeLabel string `json:"size_label" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"omitempty,numeric"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100"`
}

// UpdateQuantityInput holds the parameters for setting an item quantity.
// An explicit zero or negative quantity removes the line.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,lte=100"`
}

// EventPublisher publishes cart snapshots. *event.Producer satisfies it.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, userID string, items []domain.LineItem, totals domain.Totals) error
	PublishCartCleared(ctx context.Context, userID string) error
}

// Options holds the cart engine settings shared by every user's store.
type Options struct {
	TaxRate  decimal.Decimal
	Shipping pricing.ShippingPolicy
	Mode     store.Mode

	// IdleTTL is how long an unused store is kept in memory. Zero keeps
	// every store until Close.
	IdleTTL time.Duration
}

// ItemView is a cart line enriched with catalog data for display.
type ItemView struct {
	domain.LineItem
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the cart as returned to clients.
type CartView struct {
	UserID  string          `json:"user_id"`
	Items   []ItemView      `json:"items"`
	Totals  domain.Totals   `json:"totals"`
	Summary pricing.Summary `json:"summary"`
}

// CartService owns one store per user and applies boundary validation before
// requests reach them.
type CartService struct {
	slot     repository.SlotRepository
	catalog  catalog.Catalog
	notifier notify.Notifier
	events   EventPublisher
	logger   *slog.Logger
	opts     Options

	stores *sessions[*store.Store]
}

// NewCartService creates a new cart service. catalog and events may be nil.
func NewCartService(
	slot repository.SlotRepository,
	cat catalog.Catalog,
	notifier notify.Notifier,
	events EventPublisher,
	logger *slog.Logger,
	opts Options,
) *CartService {
	if notifier == nil {
		notifier = notify.Nop
	}
	if opts.TaxRate.IsZero() {
		opts.TaxRate = domain.DefaultTaxRate
	}
	if opts.Mode == "" {
		opts.Mode = store.ModeSync
	}
	s := &CartService{
		slot:     slot,
		catalog:  cat,
		notifier: notifier,
		events:   events,
		logger:   logger,
		opts:     opts,
	}
	s.stores = newSessions(opts.IdleTTL, logger, s.newStore,
		func(ctx context.Context, st *store.Store) error { return st.Close(ctx) })
	return s
}

func (s *CartService) newStore(userID string) *store.Store {
	return store.New(s.slot, CartSlotPrefix+userID,
		store.WithOwner(userID),
		store.WithTaxRate(s.opts.TaxRate),
		store.WithMode(s.opts.Mode),
		store.WithNotifier(s.notifier),
		store.WithCatalog(s.catalog),
		store.WithLogger(s.logger),
	)
}

// acquire returns the hydrated store for userID, creating it on first use.
// The store stays in memory at least until release is called. Hydration is
// detached from ctx so a client going away cannot fail it.
func (s *CartService) acquire(ctx context.Context, userID string) (*store.Store, func(), error) {
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
		s.logger.ErrorContext(ctx, "failed to load cart",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, nil, apperrors.ServiceUnavailable("cart storage is unavailable, try again")
	}
	return st, release, nil
}

// GetCart returns the user's cart with display data.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.view(ctx, userID, st.State()), nil
}

// GetSummary returns the totals and shipping summary without item details.
func (s *CartService) GetSummary(ctx context.Context, userID string) (*pricing.Summary, error) {
	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	summary := pricing.Summarize(st.Totals(), s.opts.Shipping)
	return &summary, nil
}

// AddItem validates input and merges it into the user's cart.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (_ *CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.AddItem", userID)
	defer func() { endSpan(span, err) }()

	if err := validator.Validate(input); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	price, err := s.resolvePrice(ctx, input)
	if err != nil {
		return nil, err
	}

	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := st.AddItem(ctx, domain.LineItem{
		ProductID: input.ProductID,
		ColorName: input.ColorName,
		SizeLabel: input.SizeLabel,
		UnitPrice: price,
		Quantity:  input.Quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	s.publishUpdated(ctx, userID, state)
	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", input.ProductID),
		slog.String("color", input.ColorName),
		slog.String("size", input.SizeLabel),
		slog.Int("quantity", input.Quantity),
	)

	return s.view(ctx, userID, state), nil
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, key domain.Key, input UpdateQuantityInput) (_ *CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.UpdateQuantity", userID)
	defer func() { endSpan(span, err) }()

	if err := validator.Validate(input); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	quantity := *input.Quantity
	state, err := st.SetQuantity(ctx, key.ProductID, key.ColorName, key.SizeLabel, quantity)
	if err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}

	s.publishUpdated(ctx, userID, state)
	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("item", key.String()),
		slog.Int("quantity", quantity),
	)

	return s.view(ctx, userID, state), nil
}

// RemoveItem removes a line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, key domain.Key) (_ *CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.RemoveItem", userID)
	defer func() { endSpan(span, err) }()

	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := st.RemoveItem(ctx, key.ProductID, key.ColorName, key.SizeLabel)
	if err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}

	s.publishUpdated(ctx, userID, state)
	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("item", key.String()),
	)

	return s.view(ctx, userID, state), nil
}

// ClearCart empties the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) (err error) {
	ctx, span := startSpan(ctx, "CartService.ClearCart", userID)
	defer func() { endSpan(span, err) }()

	st, release, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := st.Clear(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishCartCleared(ctx, userID); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)
	return nil
}

// Close flushes every store and joins the errors.
func (s *CartService) Close(ctx context.Context) error {
	return s.stores.closeAll(ctx)
}

func (s *CartService) resolvePrice(ctx context.Context, input AddItemInput) (decimal.Decimal, error) {
	if input.UnitPrice != "" {
		price, err := decimal.NewFromString(input.UnitPrice)
		if err != nil {
			return decimal.Zero, apperrors.InvalidInput("unit price must be a decimal number")
		}
		return price, nil
	}

	if s.catalog == nil {
		return decimal.Zero, apperrors.InvalidInput("unit price is required")
	}
	product, err := s.catalog.Product(ctx, input.ProductID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("look up price: %w", err)
	}
	return product.RetailPrice, nil
}

func (s *CartService) publishUpdated(ctx context.Context, userID string, state store.State) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCartUpdated(ctx, userID, state.Items, state.Totals); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) view(ctx context.Context, userID string, state store.State) *CartView {
	items := make([]ItemView, len(state.Items))
	for i, it := range state.Items {
		items[i] = ItemView{LineItem: it, Name: it.ProductID, LineTotal: it.LineTotal()}
		if s.catalog == nil {
			continue
		}
		if p, err := s.catalog.Product(ctx, it.ProductID); err == nil {
			items[i].Name = p.Name
			items[i].SKU = catalog.VariantSKU(p.SKU, it.ColorName, it.SizeLabel)
		}
	}
	return &CartView{
		UserID:  userID,
		Items:   items,
		Totals:  state.Totals,
		Summary: pricing.Summarize(state.Totals, s.opts.Shipping),
	}
}
