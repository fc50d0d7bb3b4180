package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// DownloadQueue is the queue surface used by the download endpoints.
// *app.QueueManager satisfies it.
type DownloadQueue interface {
	AddDownload(url, userID string) (*domain.Download, error)
	GetDownload(id string) (*domain.Download, error)
	ListDownloads(filters map[string]interface{}) ([]*domain.Download, error)
	GetStats() (*domain.DownloadStats, error)
	CancelDownload(id string) error
	DeleteDownload(id string) error
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	queue  DownloadQueue
	logger *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(queue DownloadQueue, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		queue:  queue,
		logger: logger,
	}
}

// AddDownloadRequest represents a request to add a download
type AddDownloadRequest struct {
	URL    string `json:"url" binding:"required"`
	UserID string `json:"user_id"`
}

// DownloadResponse is a download record plus the public URL of its stored file
type DownloadResponse struct {
	*domain.Download
	FileURL string `json:"file_url,omitempty"`
}

func newDownloadResponse(d *domain.Download) DownloadResponse {
	resp := DownloadResponse{Download: d}
	if d.FilePath != "" {
		resp.FileURL = "/files/" + filepath.Base(d.FilePath)
	}
	return resp
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	download, err := h.queue.AddDownload(req.URL, req.UserID)
	if err != nil {
		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			respondResolutionError(c, err)
			return
		}
		h.logger.Error("Failed to add download", zap.Error(err))
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, newDownloadResponse(download))
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	download, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newDownloadResponse(download))
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		if !domain.ValidateStatus(domain.DownloadStatus(status)) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status: " + status})
			return
		}
		filters["status"] = status
	}
	if platform := c.Query("platform"); platform != "" {
		if !domain.ValidatePlatform(domain.Platform(platform)) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid platform: " + platform})
			return
		}
		filters["platform"] = platform
	}
	if userID := c.Query("user_id"); userID != "" {
		filters["user_id"] = userID
	}

	downloads, err := h.queue.ListDownloads(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	resp := make([]DownloadResponse, 0, len(downloads))
	for _, d := range downloads {
		resp = append(resp, newDownloadResponse(d))
	}
	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.queue.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	download, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.queue.CancelDownload(download.ID); err != nil {
		h.logger.Warn("Failed to cancel download", zap.String("id", download.ID), zap.Error(err))
		respondError(c, http.StatusConflict, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	download, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.queue.DeleteDownload(download.ID); err != nil {
		h.logger.Warn("Failed to delete download", zap.String("id", download.ID), zap.Error(err))
		respondError(c, http.StatusConflict, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *DownloadHandler) lookup(c *gin.Context) (*domain.Download, bool) {
	download, err := h.queue.GetDownload(c.Param("id"))
	if err != nil || download == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "download not found"})
		return nil, false
	}
	return download, true
}
