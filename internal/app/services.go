package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/wavezboy/social.downloader/internal/domain"
	"github.com/wavezboy/social.downloader/internal/infrastructure"
	"github.com/wavezboy/social.downloader/pkg/logger"
)

// Services holds the wired application components shared by the server and the CLI
type Services struct {
	Config       *domain.Config
	Repo         *infrastructure.SQLiteDownloadRepository
	Orchestrator *Orchestrator
	DownloadMgr  *DownloadManager
	QueueMgr     *QueueManager
	FilesFs      afero.Fs

	redisClient *redis.Client
	natsConn    *nats.Conn
	logger      *zap.Logger
}

// NewServices opens storage and external connections and wires every component
func NewServices(ctx context.Context, config *domain.Config, log *zap.Logger, multiLog *logger.MultiLogger) (*Services, error) {
	s := &Services{Config: config, logger: log}

	if err := CreateDirectories(config); err != nil {
		return nil, err
	}

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	s.Repo = repo

	// A nil *RedisResolutionCache must not reach the orchestrator as a non-nil interface.
	var cache domain.ResolutionCache
	if config.Cache.Enabled {
		client, err := infrastructure.NewRedisClient(ctx, &config.Cache)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redisClient = client
		cache = infrastructure.NewRedisResolutionCache(client, config.Cache.TTL)
		log.Info("Resolution cache enabled", zap.String("address", config.Cache.Address))
	}

	var publisher infrastructure.Publisher
	if config.Notification.Enabled && config.Notification.Method == "nats" {
		nc, err := infrastructure.ConnectNATS(&config.Notification, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.natsConn = nc
		publisher = nc
	}
	notifier := infrastructure.NewNotificationService(&config.Notification, publisher, logger.Component(log, "notification"))

	launcher := infrastructure.NewRodLauncher(&config.Browser, logger.Component(log, "browser"))
	resolvers := infrastructure.NewResolvers(config, launcher, logger.Component(log, "resolver"))
	s.Orchestrator = NewOrchestrator(resolvers, cache, logger.Component(log, "orchestrator"))

	s.FilesFs = afero.NewOsFs()
	fetcher := infrastructure.NewHTTPMediaFetcher(
		s.FilesFs,
		config.Download.FilesDir,
		config.Download.FetchTimeout,
		config.Browser.UserAgent,
		logger.Component(log, "fetcher"),
	)

	s.DownloadMgr = NewDownloadManager(repo, s.Orchestrator, fetcher, notifier, &config.Download, logger.Component(log, "download"))
	s.QueueMgr = NewQueueManager(repo, s.DownloadMgr, notifier, &config.Queue, multiLog)

	return s, nil
}

// Close releases storage and external connections
func (s *Services) Close() {
	if s.natsConn != nil {
		if err := s.natsConn.Drain(); err != nil {
			s.logger.Warn("Failed to drain nats connection", zap.Error(err))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if s.Repo != nil {
		if err := s.Repo.Close(); err != nil {
			s.logger.Warn("Failed to close repository", zap.Error(err))
		}
	}
}

// CreateDirectories creates the data, files, logs and database directories
func CreateDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.FilesDir,
		config.Download.LogsDir,
		filepath.Dir(config.Queue.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
