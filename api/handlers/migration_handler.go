package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/batch-download-go/internal/domain"
)

// MigrationService is the part of app.Migrator served over HTTP
type MigrationService interface {
	Status() domain.MigrationStatus
	StartMigration(ctx context.Context, observer domain.MigrationObserver)
}

// MigrationHandler exposes the legacy database import
type MigrationHandler struct {
	migration MigrationService
	ctx       context.Context
}

// NewMigrationHandler creates a migration handler. Migrations started over
// HTTP run under ctx rather than the request context.
func NewMigrationHandler(ctx context.Context, migration MigrationService) *MigrationHandler {
	return &MigrationHandler{migration: migration, ctx: ctx}
}

// GetStatus handles GET /api/v1/migration
func (h *MigrationHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.migration.Status())
}

// StartMigration handles POST /api/v1/migration
func (h *MigrationHandler) StartMigration(c *gin.Context) {
	h.migration.StartMigration(h.ctx, nil)
	c.JSON(http.StatusAccepted, h.migration.Status())
}
