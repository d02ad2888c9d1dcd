package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// RequestLogger stores a request-scoped logger enriched with correlation_id,
// user_id, trace_id and span_id in the context. Mount it after RequestLogging
// and Tracing so those values are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				userID = r.Header.Get(UserIDHeader)
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
