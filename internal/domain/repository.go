package domain

// DownloadRepository defines the interface for download persistence
type DownloadRepository interface {
	// Create creates a new download
	Create(download *Download) error

	// Update updates an existing download
	Update(download *Download) error

	// Delete deletes a download by ID
	Delete(id string) error

	// FindByID finds a download by ID
	FindByID(id string) (*Download, error)

	// FindPending finds all queued downloads, oldest first
	FindPending() ([]*Download, error)

	// FindAll finds all downloads with optional filters (status, platform, user_id)
	FindAll(filters map[string]interface{}) ([]*Download, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)

	// FailOrphaned marks downloads left in processing state as failed
	FailOrphaned(reason string) (int64, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total      int64              `json:"total"`
	Queued     int64              `json:"queued"`
	Processing int64              `json:"processing"`
	Completed  int64              `json:"completed"`
	Failed     int64              `json:"failed"`
	Cancelled  int64              `json:"cancelled"`
	ByPlatform map[Platform]int64 `json:"by_platform"`
}
