package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

// BatchService is the part of app.DownloadManager served over HTTP
type BatchService interface {
	Submit(batch *domain.Batch) (domain.DownloadBatchID, error)
	Pause(id domain.DownloadBatchID) error
	Resume(id domain.DownloadBatchID) error
	Delete(id domain.DownloadBatchID)
	GetBatchStatus(id domain.DownloadBatchID) (*domain.BatchStatus, error)
	GetAllBatchStatuses() []domain.BatchStatus
	GetStats() *domain.DownloadStats
	Subscribe(observer domain.BatchObserver) func()
	IsRunning() bool
}

// DownloadHandler handles batch-related HTTP requests
type DownloadHandler struct {
	batches BatchService
	logger  *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(batches BatchService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		batches: batches,
		logger:  logger,
	}
}

// SubmitBatchRequest represents a request to download a batch of files
type SubmitBatchRequest struct {
	ID    string              `json:"id,omitempty"`
	Title string              `json:"title,omitempty"`
	Files []SubmitFileRequest `json:"files" binding:"required,min=1,dive"`
}

// SubmitFileRequest is one file of a SubmitBatchRequest
type SubmitFileRequest struct {
	ID             string `json:"id,omitempty"`
	NetworkAddress string `json:"network_address" binding:"required"`
	FilePath       string `json:"file_path,omitempty"`
}

func (r SubmitBatchRequest) toBatch() *domain.Batch {
	batch := &domain.Batch{
		ID:    domain.DownloadBatchID(r.ID),
		Title: r.Title,
	}
	for _, f := range r.Files {
		batch.Files = append(batch.Files, domain.BatchFile{
			ID:             domain.DownloadFileID(f.ID),
			NetworkAddress: f.NetworkAddress,
			FilePath:       f.FilePath,
		})
	}
	return batch
}

// SubmitBatch handles POST /api/v1/batches
func (h *DownloadHandler) SubmitBatch(c *gin.Context) {
	var req SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.batches.Submit(req.toBatch())
	if err != nil {
		h.respondError(c, "Failed to submit batch", err)
		return
	}

	status, err := h.batches.GetBatchStatus(id)
	if err != nil {
		// deleted between submit and lookup
		c.JSON(http.StatusCreated, gin.H{"batch_id": id})
		return
	}
	c.JSON(http.StatusCreated, status)
}

// GetBatch handles GET /api/v1/batches/:id
func (h *DownloadHandler) GetBatch(c *gin.Context) {
	status, err := h.batches.GetBatchStatus(domain.DownloadBatchID(c.Param("id")))
	if err != nil {
		h.respondError(c, "Failed to get batch", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListBatches handles GET /api/v1/batches
func (h *DownloadHandler) ListBatches(c *gin.Context) {
	statuses := h.batches.GetAllBatchStatuses()

	if filter := c.Query("status"); filter != "" {
		want, err := domain.ParseStatus(filter)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filtered := make([]domain.BatchStatus, 0, len(statuses))
		for _, s := range statuses {
			if s.Status == want {
				filtered = append(filtered, s)
			}
		}
		statuses = filtered
	}

	if c.Query("files") != "true" {
		for i := range statuses {
			statuses[i].Files = nil
		}
	}

	c.JSON(http.StatusOK, statuses)
}

// GetStats handles GET /api/v1/batches/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.batches.GetStats())
}

// PauseBatch handles POST /api/v1/batches/:id/pause
func (h *DownloadHandler) PauseBatch(c *gin.Context) {
	id := domain.DownloadBatchID(c.Param("id"))
	if err := h.batches.Pause(id); err != nil {
		h.respondError(c, "Failed to pause batch", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "batch paused"})
}

// ResumeBatch handles POST /api/v1/batches/:id/resume
func (h *DownloadHandler) ResumeBatch(c *gin.Context) {
	id := domain.DownloadBatchID(c.Param("id"))
	if err := h.batches.Resume(id); err != nil {
		h.respondError(c, "Failed to resume batch", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "batch resumed"})
}

// DeleteBatch handles DELETE /api/v1/batches/:id. Deletion finishes in the
// background, so the response is 202 even for unknown batches.
func (h *DownloadHandler) DeleteBatch(c *gin.Context) {
	h.batches.Delete(domain.DownloadBatchID(c.Param("id")))
	c.JSON(http.StatusAccepted, gin.H{"message": "batch deletion started"})
}

func (h *DownloadHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBatchAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      err.Error(),
			"error_kind": domain.KindOf(err, ""),
		})
	}
}
