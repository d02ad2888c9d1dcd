package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// GetTotals handles GET /api/v1/cart/totals
func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary.Rounded()})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input service.AddItemInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}/{colorName}/{sizeLabel}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	key, err := lineKey(r)
	if err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	var input service.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), middleware.UserIDFromContext(r.Context()), key, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}/{colorName}/{sizeLabel}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key, err := lineKey(r)
	if err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), key)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lineKey reads the line identity from the path. Color and size labels may
// contain spaces, so each segment is unescaped.
func lineKey(r *http.Request) (domain.Key, error) {
	var key domain.Key
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"productId", &key.ProductID},
		{"colorName", &key.ColorName},
		{"sizeLabel", &key.SizeLabel},
	} {
		v, err := url.PathUnescape(chi.URLParam(r, p.name))
		if err != nil || v == "" {
			return domain.Key{}, errors.New("invalid path parameter: " + p.name)
		}
		*p.dst = v
	}
	return key, nil
}
