package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Storage backends for the cart and wishlist slots.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CART_HTTP_PORT" envDefault:"8003"`

	// Storage
	StorageBackend string `env:"CART_STORAGE_BACKEND" envDefault:"redis"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days). Applies to the Redis backend.
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront_cart"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// SlowQueryThreshold logs slot queries slower than this; 0 disables it.
	SlowQueryThreshold time.Duration `env:"CART_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// SQLite
	SQLitePath string `env:"CART_SQLITE_PATH" envDefault:"cart.db"`

	// Pricing
	TaxRate               string `env:"CART_TAX_RATE" envDefault:"0.18"`
	ShippingFee           string `env:"CART_SHIPPING_FEE" envDefault:"99"`
	FreeShippingThreshold string `env:"CART_FREE_SHIPPING_THRESHOLD" envDefault:"5000"`

	// PersistenceMode is "sync" or "async".
	PersistenceMode string `env:"CART_PERSISTENCE_MODE" envDefault:"sync"`

	// SessionIdleTTL drops a shopper's in-memory cart and wishlist after this
	// long without requests; 0 keeps them until shutdown.
	SessionIdleTTL time.Duration `env:"CART_SESSION_IDLE_TTL" envDefault:"30m"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Catalog. ProductServiceURL takes precedence over CatalogPath.
	CatalogPath       string `env:"CART_CATALOG_PATH" envDefault:"services/cart/configs/catalog.yaml"`
	ProductServiceURL string `env:"PRODUCT_SERVICE_URL" envDefault:""`

	// Circuit breaker around the product service.
	CBTimeout      time.Duration `env:"CART_CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CART_CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CART_CB_MIN_REQUESTS" envDefault:"5"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Per-shopper token bucket on the API routes; 0 RPS disables it.
	RateLimitRPS   float64 `env:"CART_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"CART_RATE_LIMIT_BURST" envDefault:"40"`

	// CORS and debug endpoints
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// EnvFileVar names the dotenv file read before parsing; it defaults to .env
// in the working directory and is optional.
const EnvFileVar = "CART_ENV_FILE"

// Load reads configuration from the environment, filling gaps from the
// dotenv file named by CART_ENV_FILE.
func Load() (*Config, error) {
	envFile := os.Getenv(EnvFileVar)
	if envFile == "" {
		envFile = ".env"
	}

	cfg := &Config{}
	if err := pkgconfig.Load(cfg, envFile); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Tax returns the parsed tax rate.
func (c *Config) Tax() decimal.Decimal {
	return decimal.RequireFromString(c.TaxRate)
}

// Shipping returns the parsed flat fee and free-shipping threshold.
func (c *Config) Shipping() (fee, threshold decimal.Decimal) {
	return decimal.RequireFromString(c.ShippingFee), decimal.RequireFromString(c.FreeShippingThreshold)
}

// CartTTLDuration returns the Redis key TTL.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// validate checks configuration invariants. Decimal fields are validated here
// so the accessors above can use RequireFromString.
func (c *Config) validate() error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}

	switch c.StorageBackend {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("invalid CART_STORAGE_BACKEND %q: must be memory, redis, postgres or sqlite", c.StorageBackend))
	}
	if c.StorageBackend == StorageSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("CART_SQLITE_PATH is required for the sqlite backend"))
	}
	if c.CartTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid CART_TTL_HOURS: %d", c.CartTTL))
	}

	for name, raw := range map[string]string{
		"CART_TAX_RATE":                c.TaxRate,
		"CART_SHIPPING_FEE":            c.ShippingFee,
		"CART_FREE_SHIPPING_THRESHOLD": c.FreeShippingThreshold,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, raw, err))
			continue
		}
		if d.IsNegative() {
			errs = append(errs, fmt.Errorf("invalid %s %q: must not be negative", name, raw))
		}
	}
	if rate, err := decimal.NewFromString(c.TaxRate); err == nil && rate.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("invalid CART_TAX_RATE %q: must be a fraction between 0 and 1", c.TaxRate))
	}

	if c.PersistenceMode != "sync" && c.PersistenceMode != "async" {
		errs = append(errs, fmt.Errorf("invalid CART_PERSISTENCE_MODE %q: must be sync or async", c.PersistenceMode))
	}
	if c.SessionIdleTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid CART_SESSION_IDLE_TTL: %s", c.SessionIdleTTL))
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}

	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		errs = append(errs, fmt.Errorf("invalid CART_CB_FAILURE_RATIO: %v", c.CBFailureRatio))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTELSampleRate))
	}

	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst))
	}

	for _, cidr := range c.PprofAllowedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Errorf("invalid PPROF_ALLOWED_CIDRS entry %q: %w", cidr, err))
		}
	}

	return errors.Join(errs...)
}
