package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/metrics"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of a single readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	db      Pinger
	version string
	timeout time.Duration
}

func NewHealthChecker(db Pinger, version string) *HealthChecker {
	return &HealthChecker{db: db, version: version, timeout: 2 * time.Second}
}

// Healthz is the liveness probe. It never touches the database.
func (h *HealthChecker) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz is the readiness probe: 503 until the database answers.
func (h *HealthChecker) Readyz(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "shutting_down",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	default:
	}

	check := h.checkDatabase(r.Context())
	status, code := "ready", http.StatusOK
	if check.Status != "pass" {
		status, code = "unavailable", http.StatusServiceUnavailable
		metrics.HealthCheckStatus.WithLabelValues("database").Set(0)
	} else {
		metrics.HealthCheckStatus.WithLabelValues("database").Set(1)
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Checks:    map[string]CheckResult{"database": check},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database ping failed"
		if errors.Is(err, context.DeadlineExceeded) {
			message = "Database ping timed out"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: "Database reachable", LatencyMs: latency}
}
