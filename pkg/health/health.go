package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds the whole readiness probe.
const checkTimeout = 5 * time.Second

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Response is the JSON response returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type registration struct {
	check    Checker
	critical bool
}

// Handler provides HTTP health check endpoints. A failing critical check
// makes the service unready; a failing non-critical check only degrades it.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]registration
}

// NewHandler creates a new health check handler.
func NewHandler() *Handler {
	return &Handler{
		checkers: make(map[string]registration),
	}
}

// Register adds a named critical checker. Registering a name twice replaces
// the earlier checker.
func (h *Handler) Register(name string, checker Checker) {
	h.RegisterCritical(name, checker)
}

// RegisterCritical adds a checker whose failure returns 503.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterNonCritical adds a checker whose failure reports "degraded" with 200.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.register(name, checker, false)
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = registration{check: checker, critical: critical}
}

// LivenessHandler returns a simple liveness check (always 200 if the process is running).
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs every registered check concurrently.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		h.mu.RLock()
		regs := make(map[string]registration, len(h.checkers))
		for k, v := range h.checkers {
			regs[k] = v
		}
		h.mu.RUnlock()

		var (
			mu     sync.Mutex
			checks = make(map[string]CheckResult, len(regs))
			g      errgroup.Group
		)
		for name, reg := range regs {
			g.Go(func() error {
				res := CheckResult{Status: StatusUp, Critical: reg.critical}
				if err := reg.check(ctx); err != nil {
					res.Status = StatusDown
					res.Error = err.Error()
				}
				mu.Lock()
				checks[name] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		overall := StatusUp
		for _, c := range checks {
			if c.Status != StatusDown {
				continue
			}
			if c.Critical {
				overall = StatusDown
				break
			}
			overall = StatusDegraded
		}

		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, Response{Status: overall, Timestamp: time.Now().UTC(), Checks: checks})
	}
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
