package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery turns a panic into a 500 response in the standard error envelope.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
