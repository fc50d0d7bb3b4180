package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wavezboy/social.downloader/internal/domain"
	"github.com/wavezboy/social.downloader/internal/infrastructure"
	"go.uber.org/zap"
)

// ErrDownloadCancelled is returned by ProcessDownload when the download was cancelled
var ErrDownloadCancelled = errors.New("download cancelled")

// MediaResolver turns a post URL into a resolution result. *Orchestrator satisfies it.
type MediaResolver interface {
	Resolve(ctx context.Context, url, userID string) (*domain.ResolutionResult, error)
}

// DownloadManager runs a single resolve-and-fetch attempt per download
type DownloadManager struct {
	repo               domain.DownloadRepository
	resolver           MediaResolver
	fetcher            domain.MediaFetcher
	notifier           *infrastructure.NotificationService
	config             *domain.DownloadConfig
	logger             *zap.Logger
	platformSemaphores map[domain.Platform]chan struct{}
	mu                 sync.Mutex
	active             map[string]context.CancelFunc
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.DownloadRepository,
	resolver MediaResolver,
	fetcher domain.MediaFetcher,
	notifier *infrastructure.NotificationService,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadManager {
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}

	// Each platform gets its own bound so slow browser sessions never
	// starve API-driven platforms.
	platformSemaphores := make(map[domain.Platform]chan struct{})
	for _, platform := range domain.SupportedPlatforms() {
		platformSemaphores[platform] = make(chan struct{}, limit)
	}

	return &DownloadManager{
		repo:               repo,
		resolver:           resolver,
		fetcher:            fetcher,
		notifier:           notifier,
		config:             config,
		logger:             logger,
		platformSemaphores: platformSemaphores,
		active:             make(map[string]context.CancelFunc),
	}
}

// Download creates a download record and processes it synchronously
func (dm *DownloadManager) Download(ctx context.Context, url, userID string) (*domain.Download, error) {
	platform := domain.DetectPlatform(url)
	if platform == "" {
		return nil, domain.NewResolutionError("", fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, url))
	}

	download := domain.NewDownload(url, platform, userID)
	if err := dm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	err := dm.ProcessDownload(ctx, download)
	return download, err
}

// ProcessDownload resolves and fetches a single download
func (dm *DownloadManager) ProcessDownload(ctx context.Context, download *domain.Download) error {
	platformSem, ok := dm.platformSemaphores[download.Platform]
	if !ok {
		err := domain.NewResolutionError(download.Platform, fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, download.Platform))
		dm.fail(download, err)
		return err
	}

	select {
	case platformSem <- struct{}{}:
		defer func() { <-platformSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	dm.track(download.ID, cancel)
	defer dm.untrack(download.ID)

	log := dm.logger.With(
		zap.String("id", download.ID),
		zap.String("platform", string(download.Platform)))

	log.Info("Processing download", zap.String("url", download.URL))

	// The record may have been cancelled while waiting for a slot.
	if err := dm.transition(download, download.MarkProcessing); err != nil {
		if errors.Is(err, ErrDownloadCancelled) {
			log.Info("Download cancelled before processing")
		}
		return err
	}

	result, err := dm.resolver.Resolve(ctx, download.URL, download.UserID)
	if err == nil {
		var filePath string
		filePath, err = dm.fetcher.Fetch(ctx, result, download.UserID)
		if err == nil {
			if terr := dm.transition(download, func() { download.MarkCompleted(result.MediaURL, filePath) }); terr != nil {
				if errors.Is(terr, ErrDownloadCancelled) {
					log.Info("Download cancelled while processing")
					return terr
				}
				log.Error("Failed to update download status", zap.Error(terr))
			}
			log.Info("Download completed", zap.String("file", filePath))
			dm.notifier.NotifyDownloadCompleted(download)
			return nil
		}
	}

	if ferr := dm.fail(download, err); errors.Is(ferr, ErrDownloadCancelled) {
		log.Info("Download cancelled while processing")
		return ferr
	}
	log.Warn("Download failed", zap.Error(err))
	return err
}

func (dm *DownloadManager) fail(download *domain.Download, err error) error {
	if terr := dm.transition(download, func() { download.MarkFailed(err) }); terr != nil {
		if !errors.Is(terr, ErrDownloadCancelled) {
			dm.logger.Error("Failed to update download status", zap.String("id", download.ID), zap.Error(terr))
		}
		return terr
	}
	dm.notifier.NotifyDownloadFailed(download)
	return nil
}

// transition applies a status change and persists it unless the stored record
// has been cancelled. It holds dm.mu so CancelDownload cannot interleave
// between the check and the write.
func (dm *DownloadManager) transition(download *domain.Download, apply func()) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if current, err := dm.repo.FindByID(download.ID); err == nil && current != nil && current.Status == domain.StatusCancelled {
		*download = *current
		return ErrDownloadCancelled
	}

	apply()
	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}
	return nil
}

// CancelDownload cancels a queued or running download
func (dm *DownloadManager) CancelDownload(id string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	download, err := dm.repo.FindByID(id)
	if err != nil || download == nil {
		return fmt.Errorf("download not found: %s", id)
	}

	if download.IsTerminal() {
		return fmt.Errorf("download already in terminal state: %s", download.Status)
	}

	download.MarkCancelled()
	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	if cancel, ok := dm.active[id]; ok && cancel != nil {
		cancel()
	}

	dm.logger.Info("Download cancelled", zap.String("id", id))
	return nil
}

// platformLimit is the number of downloads allowed to run at once per platform
func (dm *DownloadManager) platformLimit() int {
	for _, sem := range dm.platformSemaphores {
		return cap(sem)
	}
	return 1
}

func (dm *DownloadManager) track(id string, cancel context.CancelFunc) {
	dm.mu.Lock()
	dm.active[id] = cancel
	dm.mu.Unlock()
}

func (dm *DownloadManager) untrack(id string) {
	dm.mu.Lock()
	if cancel := dm.active[id]; cancel != nil {
		cancel()
	}
	delete(dm.active, id)
	dm.mu.Unlock()
}
