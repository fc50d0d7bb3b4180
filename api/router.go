package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/wavezboy/social.downloader/api/handlers"
	"github.com/wavezboy/social.downloader/api/middleware"
	"github.com/wavezboy/social.downloader/pkg/logger"
)

// QueueService is the queue surface behind the download and health endpoints
type QueueService interface {
	handlers.DownloadQueue
	handlers.QueueStatus
}

// RouterDeps collects the services exposed over HTTP
type RouterDeps struct {
	Queue    QueueService
	Resolver handlers.Resolver
	FilesFs  afero.Fs
	FilesDir string
	Logger   *zap.Logger
	Events   *logger.MultiLogger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger, deps.Events))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Queue)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		resolveHandler := handlers.NewResolveHandler(deps.Resolver, deps.Logger)
		v1.POST("/resolve", resolveHandler.Resolve)

		downloadHandler := handlers.NewDownloadHandler(deps.Queue, deps.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
		}
	}

	// Stored media
	if deps.FilesFs != nil {
		files := afero.NewHttpFs(deps.FilesFs).Dir(deps.FilesDir)
		router.StaticFS("/files", files)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "not found"})
	})

	return router
}
