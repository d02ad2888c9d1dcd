package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// UserIDHeader carries the shopper identity injected by the gateway.
const UserIDHeader = "X-User-ID"

// RequireUserID rejects requests without an X-User-ID header with 401 and
// stores the identity in the request context.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(UserIDHeader)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-ID header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

// WithUserID returns a context carrying the shopper identity.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the shopper identity from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// NoStore marks responses as uncacheable. Cart contents are per-shopper and
// change on every mutation.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// writeError emits the {"error":{...}} envelope for failures raised before a
// handler runs.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
