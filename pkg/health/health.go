package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/reviewregistry/pkg/httputil"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// DefaultTimeout bounds a readiness probe as a whole.
const DefaultTimeout = 5 * time.Second

// Response is the JSON body returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Handler serves liveness and readiness endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
}

func NewHandler() *Handler {
	return &Handler{checkers: make(map[string]Checker), timeout: DefaultTimeout}
}

// Register adds or replaces a named readiness check.
func (h *Handler) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Check runs every registered checker concurrently and reports the overall
// status together with each result.
func (h *Handler) Check(ctx context.Context) (Status, map[string]CheckResult) {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	timeout := h.timeout
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]CheckResult, len(checkers))
	var g errgroup.Group
	for name, check := range checkers {
		g.Go(func() error {
			start := time.Now()
			err := check(ctx)
			res := CheckResult{Status: StatusUp, Duration: time.Since(start).String()}
			if err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for _, r := range results {
		if r.Status == StatusDown {
			overall = StatusDown
			break
		}
	}
	return overall, results
}

// LivenessHandler always answers 200 while the process is serving.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler answers 200 when every check passes and 503 otherwise.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.Check(r.Context())
		code := http.StatusOK
		if status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, Response{Status: status, Timestamp: time.Now().UTC(), Checks: checks})
	}
}
