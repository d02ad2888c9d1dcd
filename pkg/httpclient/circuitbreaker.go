package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the breaker guarding one upstream. It
// trips once MinRequests calls were seen in the current Interval and at
// least FailureRatio of them failed, rejects calls for Timeout, then lets
// MaxRequests probes through.
type CircuitBreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// FallbackFunc answers in place of the upstream while the breaker rejects
// calls. err is the rejection.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})

	breakerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_fallback_invoked_total",
		Help: "Calls answered by the fallback while the breaker was rejecting.",
	}, []string{"name"})
)

var stateValues = map[gobreaker.State]float64{
	gobreaker.StateClosed:   0,
	gobreaker.StateHalfOpen: 1,
	gobreaker.StateOpen:     2,
}

// ErrCircuitOpen is returned while the breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// rejected reports whether the breaker refused the call without trying it.
func rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// CircuitBreakerClient sends requests through a Client guarded by a breaker.
type CircuitBreakerClient struct {
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
	fallback FallbackFunc
	name     string
}

func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValues[to])
		},
	})
	breakerState.WithLabelValues(cfg.Name).Set(stateValues[gobreaker.StateClosed])

	return &CircuitBreakerClient{
		client:  client,
		breaker: breaker,
		logger:  logger,
		name:    cfg.Name,
	}
}

// WithFallback returns a copy of c that answers with fn instead of an
// error while the breaker rejects calls. The copy shares c's breaker.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// Do sends req through the breaker. 5xx responses are drained into an
// error so they count as failures; 4xx responses such as an unknown
// product are returned as-is and count as successes.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s: server error %d: %s", c.name, resp.StatusCode, body)
		}
		return resp, nil
	})
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil || !rejected(err) {
		return nil, err
	}

	breakerFallbacks.WithLabelValues(c.name).Inc()
	c.logger.WarnContext(ctx, "circuit breaker rejecting, invoking fallback",
		slog.String("breaker", c.name),
		slog.String("reason", err.Error()),
	)
	return c.fallback(ctx, err)
}

func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
