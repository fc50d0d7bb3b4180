package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// Resolver resolves a post URL to its direct media URL. *app.Orchestrator satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, url, userID string) (*domain.ResolutionResult, error)
}

// ResolveHandler handles synchronous resolution requests
type ResolveHandler struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(resolver Resolver, logger *zap.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveRequest represents a request to resolve a post URL
type ResolveRequest struct {
	URL    string `json:"url" binding:"required"`
	UserID string `json:"user_id"`
}

// Resolve handles POST /api/v1/resolve
func (h *ResolveHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.resolver.Resolve(c.Request.Context(), req.URL, req.UserID)
	if err != nil {
		h.logger.Info("Resolution failed",
			zap.String("url", req.URL),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
		respondResolutionError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
