package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

// RouterConfig holds the optional router settings.
type RouterConfig struct {
	PprofCIDRs []string
	CORS       middleware.CORSConfig
	RateLimit  middleware.RateLimitConfig
}

// NewRouter creates a chi router with all cart service routes registered.
func NewRouter(
	cartService *service.CartService,
	wishlistService *service.WishlistService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cart"))
	r.Use(middleware.Tracing("cart"))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(cartService, logger)
	wishlistHandler := NewWishlistHandler(wishlistService, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUserID)
		r.Use(middleware.RateLimit(cfg.RateLimit, logger))
		r.Use(middleware.NoStore)

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/totals", cartHandler.GetTotals)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}/{colorName}/{sizeLabel}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}/{colorName}/{sizeLabel}", cartHandler.RemoveItem)
		})

		r.Route("/api/v1/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.GetWishlist)
			r.Delete("/", wishlistHandler.ClearWishlist)
			r.Post("/items", wishlistHandler.AddItem)
			r.Delete("/items/{productId}", wishlistHandler.RemoveItem)
		})
	})

	return r
}
