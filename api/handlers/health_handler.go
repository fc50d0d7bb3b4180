package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavezboy/social.downloader/internal/domain"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// QueueStatus reports whether queue workers are running. *app.QueueManager satisfies it.
type QueueStatus interface {
	IsRunning() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	queue QueueStatus
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queue QueueStatus) *HealthHandler {
	return &HealthHandler{
		queue: queue,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Platforms []domain.Platform `json:"platforms"`
	Queue     struct {
		Running bool `json:"running"`
	} `json:"queue"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Version:   Version,
		Platforms: domain.SupportedPlatforms(),
	}
	response.Queue.Running = h.queue.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.queue.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "queue manager not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
