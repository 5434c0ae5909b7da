package handlers

import (
	"net/http"

	"bucket-list-backend/internal/services"
)

// HealthHandler reports the last health check
type HealthHandler struct {
	monitor *services.HealthMonitor
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(monitor *services.HealthMonitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.monitor.Status()
	code := http.StatusOK
	if status.Status == services.HealthDegraded {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
