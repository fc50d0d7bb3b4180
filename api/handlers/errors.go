package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavezboy/social.downloader/internal/domain"
)

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error    string           `json:"error"`
	Kind     domain.ErrorKind `json:"kind,omitempty"`
	Platform domain.Platform  `json:"platform,omitempty"`
}

// statusForKind maps a resolution failure kind to an HTTP status
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnsupportedPlatform, domain.KindInvalidURL:
		return http.StatusBadRequest
	case domain.KindNoMediaFound:
		return http.StatusNotFound
	case domain.KindUpstreamAPI:
		return http.StatusBadGateway
	case domain.KindNavigationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondResolutionError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	resp := ErrorResponse{Error: err.Error(), Kind: kind}

	var resErr *domain.ResolutionError
	if errors.As(err, &resErr) {
		resp.Error = resErr.Message
		resp.Platform = resErr.Platform
	}

	c.JSON(statusForKind(kind), resp)
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
