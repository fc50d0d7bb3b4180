package infrastructure

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// Publisher publishes raw messages on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// DownloadEvent is the payload published for download lifecycle changes
type DownloadEvent struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	URL       string                `json:"url"`
	Platform  domain.Platform       `json:"platform"`
	Status    domain.DownloadStatus `json:"status"`
	MediaURL  string                `json:"media_url,omitempty"`
	FilePath  string                `json:"file_path,omitempty"`
	ErrorKind domain.ErrorKind      `json:"error_kind,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// NotificationService handles download lifecycle notifications
type NotificationService struct {
	config    *domain.NotificationConfig
	publisher Publisher
	logger    *zap.Logger
}

// NewNotificationService creates a new notification service.
// publisher may be nil unless the method is "nats".
func NewNotificationService(config *domain.NotificationConfig, publisher Publisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config:    config,
		publisher: publisher,
		logger:    logger,
	}
}

// ConnectNATS opens the NATS connection used by the "nats" method
func ConnectNATS(config *domain.NotificationConfig, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(config.NATSURL,
		nats.Name("social-downloader"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", config.NATSURL, err)
	}
	return nc, nil
}

// Send delivers a download event using the configured method
func (n *NotificationService) Send(event DownloadEvent) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("id", event.ID),
			zap.String("status", string(event.Status)))
		return nil
	}

	switch n.config.Method {
	case "log":
		n.logger.Info("Download event",
			zap.String("id", event.ID),
			zap.String("platform", string(event.Platform)),
			zap.String("status", string(event.Status)),
			zap.String("url", truncateString(event.URL, 80)),
			zap.String("error", event.Error))
		return nil
	case "nats":
		return n.publish(event)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

func (n *NotificationService) publish(event DownloadEvent) error {
	if n.publisher == nil {
		return fmt.Errorf("nats publisher is not configured")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", n.config.Subject, event.Status)
	if err := n.publisher.Publish(subject, data); err != nil {
		n.logger.Error("Failed to publish notification",
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification published", zap.String("subject", subject))
	return nil
}

func eventFromDownload(download *domain.Download) DownloadEvent {
	return DownloadEvent{
		ID:        download.ID,
		UserID:    download.UserID,
		URL:       download.URL,
		Platform:  download.Platform,
		Status:    download.Status,
		MediaURL:  download.MediaURL,
		FilePath:  download.FilePath,
		ErrorKind: download.ErrorKind,
		Error:     download.ErrorMessage,
	}
}

// NotifyDownloadQueued sends notification when download is queued
func (n *NotificationService) NotifyDownloadQueued(download *domain.Download) {
	n.Send(eventFromDownload(download))
}

// NotifyDownloadCompleted sends notification when download completes
func (n *NotificationService) NotifyDownloadCompleted(download *domain.Download) {
	n.Send(eventFromDownload(download))
}

// NotifyDownloadFailed sends notification when download fails
func (n *NotificationService) NotifyDownloadFailed(download *domain.Download) {
	n.Send(eventFromDownload(download))
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
