package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wavezboy/social.downloader/internal/domain"
	"github.com/wavezboy/social.downloader/internal/infrastructure"
	"github.com/wavezboy/social.downloader/pkg/logger"
)

// QueueManager accepts downloads and dispatches queued ones to the download manager
type QueueManager struct {
	repo        domain.DownloadRepository
	downloadMgr *DownloadManager
	notifier    *infrastructure.NotificationService
	config      *domain.QueueConfig
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
	running     bool
	stopChan    chan struct{}
	cancelRun   context.CancelFunc
	workerWg    sync.WaitGroup
	inFlight    map[string]domain.Platform
	inFlightMu  sync.Mutex
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.DownloadRepository,
	downloadMgr *DownloadManager,
	notifier *infrastructure.NotificationService,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	if multiLogger == nil {
		multiLogger = logger.NewNopMultiLogger()
	}
	return &QueueManager{
		repo:        repo,
		downloadMgr: downloadMgr,
		notifier:    notifier,
		config:      config,
		multiLogger: multiLogger,
		inFlight:    make(map[string]domain.Platform),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.stopChan = make(chan struct{})
	ctx, qm.cancelRun = context.WithCancel(ctx)
	qm.mu.Unlock()

	if n, err := qm.repo.FailOrphaned("interrupted before completion"); err != nil {
		qm.multiLogger.LogAppError("Failed to clean up orphaned downloads", zap.Error(err))
	} else if n > 0 {
		qm.multiLogger.LogQueueEvent("orphaned_downloads_failed", zap.Int64("count", n))
	}

	qm.multiLogger.LogQueueEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor, cancels running downloads and waits for
// their workers to return
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	close(qm.stopChan)
	qm.cancelRun()
	qm.mu.Unlock()

	qm.multiLogger.LogQueueEvent("queue_stopped")
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddDownload validates the URL and queues a download for it
func (qm *QueueManager) AddDownload(url, userID string) (*domain.Download, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, domain.NewResolutionError("", fmt.Errorf("%w: url is required", domain.ErrInvalidURL))
	}

	platform := domain.DetectPlatform(url)
	if platform == "" {
		return nil, domain.NewResolutionError("", fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, url))
	}

	download := domain.NewDownload(url, platform, userID)
	if err := qm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	qm.multiLogger.LogQueueEvent("download_added",
		zap.String("id", download.ID),
		zap.String("url", url),
		zap.String("platform", string(platform)),
		zap.String("user_id", userID))
	qm.notifier.NotifyDownloadQueued(download)

	return download, nil
}

// GetDownload retrieves a download by ID
func (qm *QueueManager) GetDownload(id string) (*domain.Download, error) {
	return qm.repo.FindByID(id)
}

// ListDownloads lists all downloads with optional filters
func (qm *QueueManager) ListDownloads(filters map[string]interface{}) ([]*domain.Download, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.DownloadStats, error) {
	return qm.repo.GetStats()
}

// CancelDownload cancels a queued or running download
func (qm *QueueManager) CancelDownload(id string) error {
	if err := qm.downloadMgr.CancelDownload(id); err != nil {
		return err
	}
	qm.multiLogger.LogQueueEvent("download_cancelled", zap.String("id", id))
	return nil
}

// DeleteDownload removes a finished download record
func (qm *QueueManager) DeleteDownload(id string) error {
	download, err := qm.repo.FindByID(id)
	if err != nil || download == nil {
		return fmt.Errorf("download not found: %s", id)
	}
	if !download.IsTerminal() {
		return fmt.Errorf("download still active: %s", download.Status)
	}
	return qm.repo.Delete(id)
}

// processQueue polls for queued downloads until stopped
func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			qm.multiLogger.LogQueueEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.multiLogger.LogQueueEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			qm.dispatchPending(ctx)
		}
	}
}

// dispatchPending starts a worker for every queued download not already in
// flight, up to the concurrent limit per platform. The rest wait for a later tick.
func (qm *QueueManager) dispatchPending(ctx context.Context) {
	pending, err := qm.repo.FindPending()
	if err != nil {
		qm.multiLogger.LogAppError("Failed to fetch pending downloads", zap.Error(err))
		return
	}

	for _, download := range pending {
		if !qm.claim(download) {
			continue
		}

		qm.multiLogger.LogQueueEvent("download_dispatched",
			zap.String("id", download.ID),
			zap.String("platform", string(download.Platform)))

		qm.workerWg.Add(1)
		go func(dl *domain.Download) {
			defer qm.workerWg.Done()
			defer qm.release(dl.ID)

			err := qm.downloadMgr.ProcessDownload(ctx, dl)
			switch {
			case err == nil:
				qm.multiLogger.LogQueueEvent("download_completed",
					zap.String("id", dl.ID),
					zap.String("file_path", dl.FilePath))
			case errors.Is(err, ErrDownloadCancelled):
				qm.multiLogger.LogQueueEvent("download_cancelled", zap.String("id", dl.ID))
			default:
				qm.multiLogger.LogQueueEvent("download_failed",
					zap.String("id", dl.ID),
					zap.String("kind", string(domain.KindOf(err))),
					zap.Error(err))
				qm.multiLogger.LogAppError("Failed to process download",
					zap.String("id", dl.ID),
					zap.Error(err))
			}
		}(download)
	}
}

func (qm *QueueManager) claim(download *domain.Download) bool {
	qm.inFlightMu.Lock()
	defer qm.inFlightMu.Unlock()
	if _, ok := qm.inFlight[download.ID]; ok {
		return false
	}

	running := 0
	for _, platform := range qm.inFlight {
		if platform == download.Platform {
			running++
		}
	}
	if running >= qm.downloadMgr.platformLimit() {
		return false
	}

	qm.inFlight[download.ID] = download.Platform
	return true
}

func (qm *QueueManager) release(id string) {
	qm.inFlightMu.Lock()
	delete(qm.inFlight, id)
	qm.inFlightMu.Unlock()
}
