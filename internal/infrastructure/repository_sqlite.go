package infrastructure

import (
	"fmt"
	"time"

	"github.com/wavezboy/social.downloader/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// allowedFilters are the columns FindAll accepts as filter keys
var allowedFilters = map[string]bool{
	"status":   true,
	"platform": true,
	"user_id":  true,
}

// SQLiteDownloadRepository implements DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

// NewSQLiteDownloadRepository creates a new SQLite repository
func NewSQLiteDownloadRepository(dbPath string) (*SQLiteDownloadRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Download{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// Create creates a new download
func (r *SQLiteDownloadRepository) Create(download *domain.Download) error {
	return r.db.Create(download).Error
}

// Update updates an existing download
func (r *SQLiteDownloadRepository) Update(download *domain.Download) error {
	return r.db.Save(download).Error
}

// Delete deletes a download by ID
func (r *SQLiteDownloadRepository) Delete(id string) error {
	return r.db.Delete(&domain.Download{}, "id = ?", id).Error
}

// FindByID finds a download by ID
func (r *SQLiteDownloadRepository) FindByID(id string) (*domain.Download, error) {
	var download domain.Download
	if err := r.db.First(&download, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &download, nil
}

// FindPending finds all queued downloads, oldest first
func (r *SQLiteDownloadRepository) FindPending() ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := r.db.Where("status = ?", domain.StatusQueued).
		Order("created_at ASC").
		Find(&downloads).Error
	return downloads, err
}

// FindAll finds all downloads with optional filters, newest first
func (r *SQLiteDownloadRepository) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	var downloads []*domain.Download
	query := r.db

	for key, value := range filters {
		if !allowedFilters[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&downloads).Error
	return downloads, err
}

// FailOrphaned marks downloads stuck in processing (e.g. after a crash) as failed
func (r *SQLiteDownloadRepository) FailOrphaned(reason string) (int64, error) {
	now := time.Now()
	result := r.db.Model(&domain.Download{}).
		Where("status = ?", domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"error_kind":    domain.KindInternal,
			"error_message": reason,
			"completed_at":  now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// GetStats returns download statistics
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{ByPlatform: make(map[domain.Platform]int64)}

	if err := r.db.Model(&domain.Download{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.DownloadStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Download{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	platformCounts := []struct {
		Platform domain.Platform
		Count    int64
	}{}

	if err := r.db.Model(&domain.Download{}).
		Select("platform, count(*) as count").
		Group("platform").
		Scan(&platformCounts).Error; err != nil {
		return nil, err
	}

	for _, pc := range platformCounts {
		stats.ByPlatform[pc.Platform] = pc.Count
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
