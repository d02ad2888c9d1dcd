package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineRoute = "/api/v1/cart/items/{productId}/{colorName}/{sizeLabel}"

// collectMetric returns the first series of c whose labels include labels.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		have := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			have[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if have[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func metricsRouter(service string, h http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Put(lineRoute, h)
	return r
}

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	r := metricsRouter("cart-count", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{
		"/api/v1/cart/items/sheet-001/White/Queen",
		"/api/v1/cart/items/sheet-001/Ivory/King",
		"/api/v1/cart/items/pillow-001/Blush/Standard",
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, path, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	m := collectMetric(httpRequestsTotal, map[string]string{
		"service": "cart-count", "method": "PUT", "path": lineRoute, "status": "200",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(3), m.GetCounter().GetValue())

	h := collectMetric(httpRequestDuration, map[string]string{"service": "cart-count", "path": lineRoute})
	require.NotNil(t, h)
	assert.Equal(t, uint64(3), h.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_StatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusBadRequest, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			service := "cart-status-" + http.StatusText(code)
			r := metricsRouter(service, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/a/b/c", nil))

			m := collectMetric(httpRequestsTotal, map[string]string{"service": service, "status": strconv.Itoa(code)})
			assert.NotNil(t, m)
		})
	}
}

func TestPrometheusMetrics_ImplicitOK(t *testing.T) {
	r := metricsRouter("cart-implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/a/b/c", nil))

	assert.NotNil(t, collectMetric(httpRequestsTotal, map[string]string{"service": "cart-implicit", "status": "200"}))
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	r := metricsRouter("cart-unmatched", func(http.ResponseWriter, *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.NotNil(t, collectMetric(httpRequestsTotal, map[string]string{"service": "cart-unmatched", "status": "404"}))
}

func TestPrometheusMetrics_InFlightDuringRequest(t *testing.T) {
	seen := -1.0
	r := metricsRouter("cart-inflight", func(w http.ResponseWriter, r *http.Request) {
		if m := collectMetric(httpRequestsInFlight, map[string]string{"service": "cart-inflight"}); m != nil {
			seen = m.GetGauge().GetValue()
		}
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/a/b/c", nil))

	assert.Equal(t, 1.0, seen)
	m := collectMetric(httpRequestsInFlight, map[string]string{"service": "cart-inflight"})
	require.NotNil(t, m)
	assert.Equal(t, 0.0, m.GetGauge().GetValue())
}

type flushHijackWriter struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (w *flushHijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, nil
}

// plainWriter supports neither Flush nor Hijack.
type plainWriter struct{ h http.Header }

func (w *plainWriter) Header() http.Header         { return w.h }
func (w *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *plainWriter) WriteHeader(int)             {}

func TestStatusRecorder_Delegates(t *testing.T) {
	under := &flushHijackWriter{ResponseRecorder: httptest.NewRecorder()}
	rec := newStatusRecorder(under)

	rec.Flush()
	_, _, err := rec.Hijack()

	require.NoError(t, err)
	assert.True(t, under.Flushed)
	assert.True(t, under.hijacked)
}

func TestStatusRecorder_UnsupportedWriter(t *testing.T) {
	rec := newStatusRecorder(&plainWriter{h: http.Header{}})

	assert.NotPanics(t, rec.Flush)
	_, _, err := rec.Hijack()
	assert.Error(t, err)
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, rec.Status())

	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)
	n, _ := rec.Write([]byte("abc"))

	assert.Equal(t, http.StatusCreated, rec.Status())
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, rec.bytes)
}
