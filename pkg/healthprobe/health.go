package healthprobe

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthChecker provides health and readiness checks. Components register
// themselves by name; the process is ready once every component is ready.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]bool),
	}
}

// SetComponentReady marks one named component ready or not ready.
func (h *HealthChecker) SetComponentReady(name string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = ready
}

// Ready reports whether every registered component is ready. A checker with
// no registered components is not ready.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.components) == 0 {
		return false
	}
	for _, ready := range h.components {
		if !ready {
			return false
		}
	}
	return true
}

// HealthResponse is the health/readiness payload.
type HealthResponse struct {
	Status     string   `json:"status"`
	Uptime     string   `json:"uptime"`
	NotReady   []string `json:"not_ready,omitempty"`
	Components int      `json:"components"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the process is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		count := len(h.components)
		h.mu.RUnlock()

		resp := HealthResponse{
			Status:     "healthy",
			Uptime:     time.Since(h.startTime).String(),
			Components: count,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every component is ready, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		var notReady []string
		for name, ready := range h.components {
			if !ready {
				notReady = append(notReady, name)
			}
		}
		count := len(h.components)
		h.mu.RUnlock()
		sort.Strings(notReady)

		resp := HealthResponse{
			Uptime:     time.Since(h.startTime).String(),
			Components: count,
		}

		w.Header().Set("Content-Type", "application/json")
		if count == 0 || len(notReady) > 0 {
			resp.Status = "not_ready"
			resp.NotReady = notReady
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			resp.Status = "ready"
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
