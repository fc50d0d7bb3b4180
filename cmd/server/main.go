package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wavezboy/social.downloader/api"
	"github.com/wavezboy/social.downloader/api/handlers"
	"github.com/wavezboy/social.downloader/internal/app"
	"github.com/wavezboy/social.downloader/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := app.CreateDirectories(config); err != nil {
		log.Fatal("Failed to create directories", zap.Error(err))
	}

	// Queue lifecycle and application errors go to dated files under the logs dir
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		log.Fatal("Failed to initialize event logger", zap.Error(err))
	}
	defer multiLog.Close()

	log.Info("Starting social downloader server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Bool("cache_enabled", config.Cache.Enabled),
		zap.String("notification_method", config.Notification.Method))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.NewServices(ctx, config, log, multiLog)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if config.Queue.AutoStartWorkers {
		if err := services.QueueMgr.Start(ctx); err != nil {
			log.Fatal("Failed to start queue manager", zap.Error(err))
		}
	}

	router := api.SetupRouter(api.RouterDeps{
		Queue:    services.QueueMgr,
		Resolver: services.Orchestrator,
		FilesFs:  services.FilesFs,
		FilesDir: config.Download.FilesDir,
		Logger:   logger.Component(log, "http"),
		Events:   multiLog,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if services.QueueMgr.IsRunning() {
		if err := services.QueueMgr.Stop(); err != nil {
			log.Error("Error stopping queue manager", zap.Error(err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
