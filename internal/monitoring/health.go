package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu             sync.RWMutex
	lastEvaluation time.Time
	storageHealthy bool
	breakerTripped bool
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastEvaluation time.Time `json:"last_evaluation"`
	StorageHealthy bool      `json:"storage_healthy"`
	BreakerTripped bool      `json:"breaker_tripped"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		storageHealthy: true,
		errors:         make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.storageHealthy {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastEvaluation: h.lastEvaluation,
		StorageHealthy: h.storageHealthy,
		BreakerTripped: h.breakerTripped,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// RecordEvaluation marks a completed gate evaluation
func (h *HealthChecker) RecordEvaluation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastEvaluation = time.Now()
}

// SetStorageHealthy updates storage connectivity status
func (h *HealthChecker) SetStorageHealthy(healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.storageHealthy = healthy
}

// SetBreakerTripped updates the breaker indicator surfaced to health probes
func (h *HealthChecker) SetBreakerTripped(tripped bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.breakerTripped = tripped
}

// AddError appends an error visible on the health endpoint
func (h *HealthChecker) AddError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 10 {
		h.errors = h.errors[len(h.errors)-10:]
	}
}
