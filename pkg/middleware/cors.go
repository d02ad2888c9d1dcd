package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	defaultCORSHeaders = []string{"Accept", "Content-Type", CorrelationIDHeader, UserIDHeader}
)

// CORSConfig configures cross-origin access for the storefront frontend.
// A "*" entry in AllowedOrigins, or Environment "development", allows any
// origin. Empty method and header lists fall back to what the cart API uses.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int // seconds; 0 means one hour
	AllowCredentials bool
	Environment      string
}

// DefaultCORSConfig allows any origin in development.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: defaultCORSMethods,
		AllowedHeaders: defaultCORSHeaders,
		ExposedHeaders: []string{CorrelationIDHeader},
		MaxAge:         3600,
		Environment:    "development",
	}
}

// CORS sets the Access-Control-* headers and answers preflight requests
// with 204 without calling next.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = defaultCORSMethods
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = defaultCORSHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	anyOrigin := cfg.Environment == "development"
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := origins[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}
			h.Set("Access-Control-Max-Age", maxAge)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
