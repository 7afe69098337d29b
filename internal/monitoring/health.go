package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks the agent's liveness signals for the health endpoint.
type HealthChecker struct {
	mu            sync.RWMutex
	lastCycle     time.Time
	feedConnected bool
	breakerActive bool
	errors        []string
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastCycle     time.Time `json:"last_cycle"`
	FeedConnected bool      `json:"feed_connected"`
	BreakerActive bool      `json:"breaker_active"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.feedConnected || time.Since(h.lastCycle) > 5*time.Minute {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastCycle:     h.lastCycle,
		FeedConnected: h.feedConnected,
		BreakerActive: h.breakerActive,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// MarkCycle records a completed evaluation cycle.
func (h *HealthChecker) MarkCycle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = time.Now()
}

// SetFeedConnected updates the market data connection flag.
func (h *HealthChecker) SetFeedConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feedConnected = connected
}

// SetBreakerActive mirrors the circuit breaker state into health output.
func (h *HealthChecker) SetBreakerActive(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.breakerActive = active
}

// RecordError appends an error to the health report, keeping the last ten.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 10 {
		h.errors = h.errors[len(h.errors)-10:]
	}
}

// ClearErrors empties the error list, typically at the daily reset.
func (h *HealthChecker) ClearErrors() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = h.errors[:0]
}
