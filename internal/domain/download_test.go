package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDownload(t *testing.T) {
	url := "https://www.tiktok.com/@user/video/123"

	download := NewDownload(url, PlatformTikTok, "user-1")

	assert.NotEmpty(t, download.ID)
	assert.Equal(t, url, download.URL)
	assert.Equal(t, PlatformTikTok, download.Platform)
	assert.Equal(t, "user-1", download.UserID)
	assert.Equal(t, StatusQueued, download.Status)
	assert.True(t, download.IsPending())
}

func TestDownload_MarkProcessing(t *testing.T) {
	download := NewDownload("https://x.com/a/status/1", PlatformTwitter, "u")

	download.MarkProcessing()

	assert.Equal(t, StatusProcessing, download.Status)
	assert.True(t, download.IsProcessing())
	assert.NotNil(t, download.StartedAt)
}

func TestDownload_MarkCompleted(t *testing.T) {
	download := NewDownload("https://x.com/a/status/1", PlatformTwitter, "u")
	download.ErrorMessage = "stale"

	download.MarkCompleted("https://cdn.example/v.mp4", "/data/media_u_1.mp4")

	assert.Equal(t, StatusCompleted, download.Status)
	assert.Equal(t, "https://cdn.example/v.mp4", download.MediaURL)
	assert.Equal(t, "/data/media_u_1.mp4", download.FilePath)
	assert.Empty(t, download.ErrorMessage)
	assert.NotNil(t, download.CompletedAt)
}

func TestDownload_MarkFailed(t *testing.T) {
	t.Run("resolution error", func(t *testing.T) {
		download := NewDownload("https://x.com/a/status/1", PlatformTwitter, "u")
		err := NewResolutionError(PlatformTwitter, fmt.Errorf("%w: tweet has no media", ErrNoMediaFound))

		download.MarkFailed(err)

		assert.Equal(t, StatusFailed, download.Status)
		assert.Equal(t, KindNoMediaFound, download.ErrorKind)
		assert.Equal(t, "no media found: tweet has no media", download.ErrorMessage)
	})

	t.Run("plain error", func(t *testing.T) {
		download := NewDownload("https://x.com/a/status/1", PlatformTwitter, "u")

		download.MarkFailed(errors.New("disk full"))

		assert.Equal(t, KindInternal, download.ErrorKind)
		assert.Equal(t, "disk full", download.ErrorMessage)
	})
}

func TestDownload_IsTerminal(t *testing.T) {
	download := NewDownload("https://x.com/a/status/1", PlatformTwitter, "u")

	assert.False(t, download.IsTerminal())

	download.Status = StatusProcessing
	assert.False(t, download.IsTerminal())

	for _, status := range []DownloadStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		download.Status = status
		assert.True(t, download.IsTerminal(), status)
	}
}

func TestValidateStatus(t *testing.T) {
	assert.True(t, ValidateStatus(StatusQueued))
	assert.True(t, ValidateStatus(StatusCancelled))
	assert.False(t, ValidateStatus("invalid"))
}
