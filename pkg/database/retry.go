package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = 1 * time.Second
	retryJitterFraction  = 0.25
)

// retryBackoff doubles from defaultRetryBaseWait per attempt (0-indexed)
// and spreads the result by ±retryJitterFraction.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := defaultRetryBaseWait << attempt
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- jitter only
	return base + jitter
}

// Substrings of driver errors that only ever come from a broken or
// unreachable connection.
var connErrorFragments = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"dial tcp",
	"EOF",
	"server closed the connection unexpectedly",
	"could not connect",
}

// isConnectionError reports whether err is a transient connection failure
// as opposed to a SQL or constraint error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	var connErr *pgconn.ConnectError
	if errors.As(err, &netErr) || errors.As(err, &connErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	for _, frag := range connErrorFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// withRetry runs fn up to defaultRetryAttempts times, sleeping with
// retryBackoff between attempts. Errors for which retryable returns false
// are returned at once. A nil logger silences the retry warnings.
func withRetry(ctx context.Context, logger *slog.Logger, what string, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		if attempt == defaultRetryAttempts-1 {
			break
		}

		wait := retryBackoff(attempt)
		if logger != nil {
			logger.Warn(what+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", defaultRetryAttempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: canceled during retry: %w", what, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", what, defaultRetryAttempts, err)
}
