package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/utafrali/storefront/pkg/logger"
)

// CorrelationIDHeader propagates the request correlation ID to downstream services.
const CorrelationIDHeader = "X-Correlation-ID"

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns defaults suited to short catalog lookups.
func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 50,
	}
}

// Client wraps http.Client with pooled connections and retries for
// idempotent requests.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// Do executes req, forwarding the correlation ID from ctx. GET and HEAD
// requests are retried on network errors, 429 and 5xx responses other than
// 501; other methods are sent once. A Retry-After header in seconds sets the
// wait, capped at RetryWaitMax.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if id := logger.CorrelationIDFromContext(ctx); id != "" && req.Header.Get(CorrelationIDHeader) == "" {
		req.Header.Set(CorrelationIDHeader, id)
	}

	attempts := 1
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		attempts += c.config.MaxRetries
	}

	var wait time.Duration
	for attempt := 1; ; attempt++ {
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		resp, err := c.httpClient.Do(req)
		last := attempt == attempts
		switch {
		case err != nil && (last || !retryableError(err)):
			return nil, fmt.Errorf("%s %s failed after %d attempts: %w", req.Method, req.URL.Path, attempt, err)
		case err != nil:
			wait = c.backoff(attempt)
		case last || !retryableStatus(resp.StatusCode):
			return resp, nil
		default:
			wait = c.retryAfter(resp, attempt)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
		}
	}
}

// Get performs an HTTP GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// backoff returns the exponential wait after the given failed attempt.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.config.RetryWaitMin
	for i := 1; i < attempt && wait < c.config.RetryWaitMax; i++ {
		wait *= 2
	}
	return min(wait, c.config.RetryWaitMax)
}

// retryAfter honours a Retry-After header given in seconds, falling back to
// backoff when it is absent or unparsable.
func (c *Client) retryAfter(resp *http.Response, attempt int) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return c.backoff(attempt)
	}
	return min(time.Duration(secs)*time.Second, c.config.RetryWaitMax)
}

// retryableStatus reports whether a response status is worth another try.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code != http.StatusNotImplemented)
}

// retryableError reports whether err is a network failure worth retrying.
// Cancellation and deadline errors never are.
func retryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
