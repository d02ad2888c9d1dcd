package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/config"
	"github.com/utafrali/storefront/services/cart/internal/event"
	handler "github.com/utafrali/storefront/services/cart/internal/handler/http"
	"github.com/utafrali/storefront/services/cart/internal/notify"
	"github.com/utafrali/storefront/services/cart/internal/pricing"
	"github.com/utafrali/storefront/services/cart/internal/repository"
	"github.com/utafrali/storefront/services/cart/internal/repository/memory"
	pgrepo "github.com/utafrali/storefront/services/cart/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/services/cart/internal/repository/redis"
	"github.com/utafrali/storefront/services/cart/internal/repository/sqlite"
	"github.com/utafrali/storefront/services/cart/internal/service"
	"github.com/utafrali/storefront/services/cart/internal/store"
	"github.com/utafrali/storefront/services/cart/migrations"
)

// closer releases a resource on shutdown.
type closer struct {
	name string
	fn   func() error
}

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	carts      *service.CartService
	httpServer *http.Server
	tracerStop func(context.Context) error
	closers    []closer
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	tracerStop, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "cart-service",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
		Attributes: []attribute.KeyValue{
			attribute.String("cart.storage.backend", cfg.StorageBackend),
			attribute.String("cart.persistence.mode", cfg.PersistenceMode),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerStop = tracerStop

	slot, err := a.openStorage(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	cat, err := a.openCatalog(healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Notifications always reach the log; with Kafka enabled they are also
	// published for the notification service.
	var (
		notifier notify.Notifier = notify.NewLogNotifier(logger)
		events   service.EventPublisher
	)
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.closers = append(a.closers, closer{"kafka producer", producer.Close})
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		eventProducer := event.NewProducer(producer, logger)
		notifier = notify.Multi(notifier, eventProducer)
		events = eventProducer
	}

	fee, threshold := cfg.Shipping()
	a.carts = service.NewCartService(slot, cat, notifier, events, logger, service.Options{
		TaxRate:  cfg.Tax(),
		Shipping: pricing.ShippingPolicy{FlatFee: fee, FreeThreshold: threshold},
		Mode:     store.Mode(cfg.PersistenceMode),
		IdleTTL:  cfg.SessionIdleTTL,
	})
	wishlists := service.NewWishlistService(slot, cat, notifier, logger, cfg.SessionIdleTTL)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(a.carts, wishlists, healthHandler, logger, handler.RouterConfig{
		PprofCIDRs: cfg.PprofAllowedCIDRs,
		CORS:       corsCfg,
		RateLimit:  middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// openStorage connects the configured slot backend and registers its
// readiness check.
func (a *App) openStorage(ctx context.Context, hh *health.Handler) (repository.SlotRepository, error) {
	cfg := a.cfg

	switch cfg.StorageBackend {
	case config.StorageRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, closer{"redis", rdb.Close})
		hh.RegisterCritical("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		a.logger.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("db", cfg.RedisDB),
		)
		return redisrepo.NewSlotRepository(rdb, redisrepo.DefaultKeyPrefix, cfg.CartTTLDuration()), nil

	case config.StoragePostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPassword
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSLMode

		pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, closer{"postgres", func() error { pool.Close(); return nil }})
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(nil, pool, "cart"); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, a.logger)
		hh.RegisterCritical("postgres", pool.Ping)
		a.logger.Info("connected to PostgreSQL", slog.String("host", cfg.PostgresHost))
		return pgrepo.NewSlotRepository(pool), nil

	case config.StorageSQLite:
		repo, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"sqlite", repo.Close})
		hh.RegisterCritical("sqlite", repo.Ping)
		a.logger.Info("opened SQLite slot store", slog.String("path", cfg.SQLitePath))
		return repo, nil

	default:
		a.logger.Warn("using in-memory storage; carts are lost on restart")
		return memory.NewSlotRepository(), nil
	}
}

// openCatalog prefers the product service and falls back to the YAML seed.
func (a *App) openCatalog(hh *health.Handler) (catalog.Catalog, error) {
	cfg := a.cfg

	if cfg.ProductServiceURL == "" {
		static, err := catalog.LoadStatic(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		a.logger.Info("loaded static catalog",
			slog.String("path", cfg.CatalogPath),
			slog.Int("products", len(static.List())),
		)
		return static, nil
	}

	cbCfg := httpclient.DefaultCircuitBreakerConfig("product-service")
	cbCfg.Timeout = cfg.CBTimeout
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests

	client := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig()), cbCfg, a.logger).
		WithFallback(catalog.CircuitOpenFallback)
	hh.RegisterNonCritical("product-service", func(context.Context) error {
		if client.State() == gobreaker.StateOpen {
			return errors.New("circuit open")
		}
		return nil
	})
	a.logger.Info("using product service catalog", slog.String("url", cfg.ProductServiceURL))
	return catalog.NewHTTPCatalog(client, cfg.ProductServiceURL, a.logger), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageBackend),
			slog.String("persistence_mode", a.cfg.PersistenceMode),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops accepting requests, flushes pending cart writes and then
// releases storage, Kafka and tracing.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.carts.Close(shutdownCtx); err != nil {
		a.logger.Error("cart flush error", slog.String("error", err.Error()))
	}

	a.closeAll()

	if err := a.tracerStop(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// closeAll releases resources in reverse order of acquisition.
func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Error("close error", slog.String("resource", c.name), slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
