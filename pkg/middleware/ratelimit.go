package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sets a token bucket per client. A zero RPS disables
// limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL is how long an unused bucket is kept. Defaults to 3m.
	IdleTTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one limiter per client key. Idle entries are swept
// lazily from get, at most once per ttl, so no goroutine is needed.
type visitors struct {
	mu        sync.Mutex
	byKey     map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitors(cfg RateLimitConfig) *visitors {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &visitors{
		byKey: make(map[string]*visitor),
		limit: rate.Limit(cfg.RPS),
		burst: max(cfg.Burst, 1),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (v *visitors) get(key string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) >= v.ttl {
		for k, vis := range v.byKey {
			if now.Sub(vis.lastSeen) > v.ttl {
				delete(v.byKey, k)
			}
		}
		v.lastSweep = now
	}

	vis, ok := v.byKey[key]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.byKey[key] = vis
	}
	vis.lastSeen = now
	return vis.limiter
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byKey)
}

// RateLimit rejects clients that exceed cfg with 429 and a Retry-After
// header. Clients are keyed by X-User-ID when present, else by IP.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newVisitors(cfg)
	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.RPS)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			if !store.get(key).Allow() {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if uid := r.Header.Get(UserIDHeader); uid != "" {
		return "user:" + uid
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap().String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
