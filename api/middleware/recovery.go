package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavezboy/social.downloader/pkg/logger"
	"go.uber.org/zap"
)

// Recovery returns a gin middleware for panic recovery. Panics are also
// written to the error event log.
func Recovery(log *zap.Logger, events *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString("request_id")),
				}
				log.Error("Panic recovered", fields...)
				if events != nil {
					events.LogAppError("Panic recovered", fields...)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
