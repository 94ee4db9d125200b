// Package api provides HTTP handlers for the embedding backend.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
)

// HealthHandler provides the health endpoint.
type HealthHandler struct {
	registry  *models.Registry
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(registry *models.Registry) *HealthHandler {
	return &HealthHandler{
		registry:  registry,
		startTime: time.Now(),
	}
}

// Health returns the service health status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"models":         h.registry.Len(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
		"meta": map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}
