package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/health"
)

// Version is reported by the health endpoints.
const Version = "0.1.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	checks *health.Manager
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks *health.Manager, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Time    time.Time         `json:"time"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
		Time:    time.Now(),
		Checks:  map[string]string{"gateway": "ok"},
	})
}

// Readiness handles GET /readiness
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	report := h.checks.Run(r.Context())

	response := HealthResponse{
		Status:  "ready",
		Version: Version,
		Time:    time.Now(),
		Checks:  make(map[string]string, len(report.Components)),
	}
	for _, c := range report.Components {
		response.Checks[c.Component] = c.Status
	}

	if !report.Ready {
		h.logger.Warn("Readiness check failed", zap.String("reason", report.Message))
		response.Status = "not ready"
		sendJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	sendJSON(w, http.StatusOK, response)
}
