package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// Download represents a media download requested by a user
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	UserID       string         `json:"user_id" gorm:"index"`
	URL          string         `json:"url" gorm:"not null"`
	Platform     Platform       `json:"platform" gorm:"not null;index"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	MediaURL     string         `json:"media_url,omitempty" gorm:"type:text"`
	FilePath     string         `json:"file_path,omitempty"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a new queued download
func NewDownload(url string, platform Platform, userID string) *Download {
	now := time.Now()
	return &Download{
		ID:        uuid.New().String(),
		UserID:    userID,
		URL:       url,
		Platform:  platform,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing marks the download as processing
func (d *Download) MarkProcessing() {
	d.Status = StatusProcessing
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(mediaURL, filePath string) {
	d.Status = StatusCompleted
	d.MediaURL = mediaURL
	d.FilePath = filePath
	d.ErrorKind = ""
	d.ErrorMessage = ""
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the download as failed and records the error kind
func (d *Download) MarkFailed(err error) {
	d.Status = StatusFailed
	d.ErrorKind = KindOf(err)
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		d.ErrorMessage = resErr.Message
	} else {
		d.ErrorMessage = err.Error()
	}
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkCancelled marks the download as cancelled
func (d *Download) MarkCancelled() {
	d.Status = StatusCancelled
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed || d.Status == StatusCancelled
}

// IsPending checks if the download is pending
func (d *Download) IsPending() bool {
	return d.Status == StatusQueued
}

// IsProcessing checks if the download is currently processing
func (d *Download) IsProcessing() bool {
	return d.Status == StatusProcessing
}

// ValidateStatus checks if a status is valid
func ValidateStatus(status DownloadStatus) bool {
	switch status {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
