package handlers

import (
	"context"

	"github.com/jmylchreest/webpilot/internal/pool"
	"github.com/jmylchreest/webpilot/internal/version"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Stats   *pool.Stats `json:"stats,omitempty"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	admin *pool.Admin
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(admin *pool.Admin) *HealthHandler {
	return &HealthHandler{admin: admin}
}

// HealthOutput is the output wrapper for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// Handle returns the health status.
func (h *HealthHandler) Handle(ctx context.Context) *HealthResponse {
	stats := h.admin.Stats()

	return &HealthResponse{
		Status:  "healthy",
		Version: version.Get().Version,
		Stats:   &stats,
	}
}
