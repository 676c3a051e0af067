package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/batch-download-go/internal/domain"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	batches   BatchService
	migration MigrationService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(batches BatchService, migration MigrationService) *HealthHandler {
	return &HealthHandler{
		batches:   batches,
		migration: migration,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Running bool `json:"running"`
	} `json:"queue"`
	Migration domain.MigrationState `json:"migration"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Queue.Running = h.batches.IsRunning()
	response.Migration = h.migration.Status().Status

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready. The service is not ready while the legacy
// migration is still writing batches.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.batches.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "download queue not running",
		})
		return
	}
	if h.migration.Status().Status == domain.MigrationMigrating {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "migration in progress",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
