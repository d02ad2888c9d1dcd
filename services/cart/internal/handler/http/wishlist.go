package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: logger}
}

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.GetWishlist(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: list})
}

// AddItem handles POST /api/v1/wishlist/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input service.AddWishlistItemInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	list, err := h.service.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: list})
}

// RemoveItem handles DELETE /api/v1/wishlist/items/{productId}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: list})
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Clear(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: list})
}
