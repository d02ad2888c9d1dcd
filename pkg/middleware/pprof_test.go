package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIPAllowlist(t *testing.T) {
	private := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

	tests := []struct {
		name   string
		cidrs  []string
		remote string
		want   int
	}{
		{"loopback allowed", []string{"127.0.0.0/8"}, "127.0.0.1:1234", http.StatusOK},
		{"10.x allowed", private, "10.1.2.3:1234", http.StatusOK},
		{"172.16.x allowed", private, "172.16.5.5:1234", http.StatusOK},
		{"192.168.x allowed", private, "192.168.1.1:1234", http.StatusOK},
		{"public denied", private, "8.8.8.8:1234", http.StatusForbidden},
		{"invalid entry skipped", []string{"not-a-cidr", "127.0.0.0/8"}, "127.0.0.1:1234", http.StatusOK},
		{"unmasked cidr", []string{"10.1.2.3/8"}, "10.9.9.9:1234", http.StatusOK},
		{"ipv6 loopback", []string{"::1/128"}, "[::1]:1234", http.StatusOK},
		{"ipv4-mapped ipv6", []string{"127.0.0.0/8"}, "[::ffff:127.0.0.1]:1234", http.StatusOK},
		{"no port", []string{"127.0.0.0/8"}, "127.0.0.1", http.StatusOK},
		{"garbage address", []string{"0.0.0.0/0"}, "not-an-ip", http.StatusForbidden},
		{"empty list denies all", nil, "127.0.0.1:1234", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := IPAllowlist(tt.cidrs, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
			req.RemoteAddr = tt.remote
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestIPAllowlist_DeniedEnvelope(t *testing.T) {
	h := IPAllowlist([]string{"10.0.0.0/8"}, discardLogger())(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestRegisterPprof_Routes(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, discardLogger())

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/symbol", "/debug/pprof/heap"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "127.0.0.1:1234"
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
