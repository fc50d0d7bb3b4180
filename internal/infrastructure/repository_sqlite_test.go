package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavezboy/social.downloader/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteDownloadRepository {
	t.Helper()

	repo, err := NewSQLiteDownloadRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository_CreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)

	dl := domain.NewDownload("https://www.tiktok.com/@u/video/1", domain.PlatformTikTok, "user-1")
	require.NoError(t, repo.Create(dl))

	found, err := repo.FindByID(dl.ID)
	require.NoError(t, err)
	assert.Equal(t, dl.URL, found.URL)
	assert.Equal(t, domain.PlatformTikTok, found.Platform)
	assert.Equal(t, "user-1", found.UserID)
	assert.Equal(t, domain.StatusQueued, found.Status)
}

func TestSQLiteRepository_FindByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	found, err := repo.FindByID("missing")
	assert.Error(t, err)
	assert.Nil(t, found)
}

func TestSQLiteRepository_UpdateAndDelete(t *testing.T) {
	repo := setupTestRepo(t)

	dl := domain.NewDownload("https://x.com/u/status/1", domain.PlatformTwitter, "u")
	require.NoError(t, repo.Create(dl))

	dl.MarkCompleted("https://pbs.twimg.com/media/a.jpg", "/tmp/media_u_1.jpg")
	require.NoError(t, repo.Update(dl))

	found, err := repo.FindByID(dl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, found.Status)
	assert.Equal(t, "https://pbs.twimg.com/media/a.jpg", found.MediaURL)
	assert.Equal(t, "/tmp/media_u_1.jpg", found.FilePath)

	require.NoError(t, repo.Delete(dl.ID))
	_, err = repo.FindByID(dl.ID)
	assert.Error(t, err)
}

func TestSQLiteRepository_FindPending_OldestFirst(t *testing.T) {
	repo := setupTestRepo(t)

	older := domain.NewDownload("https://x.com/u/status/1", domain.PlatformTwitter, "u")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := domain.NewDownload("https://x.com/u/status/2", domain.PlatformTwitter, "u")
	done := domain.NewDownload("https://x.com/u/status/3", domain.PlatformTwitter, "u")
	done.MarkCompleted("m", "f")

	require.NoError(t, repo.Create(newer))
	require.NoError(t, repo.Create(older))
	require.NoError(t, repo.Create(done))

	pending, err := repo.FindPending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, newer.ID, pending[1].ID)
}

func TestSQLiteRepository_FindAll_Filters(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Create(domain.NewDownload("https://x.com/u/status/1", domain.PlatformTwitter, "alice")))
	require.NoError(t, repo.Create(domain.NewDownload("https://www.tiktok.com/@u/video/1", domain.PlatformTikTok, "alice")))
	require.NoError(t, repo.Create(domain.NewDownload("https://www.tiktok.com/@u/video/2", domain.PlatformTikTok, "bob")))

	all, err := repo.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tiktok, err := repo.FindAll(map[string]interface{}{"platform": domain.PlatformTikTok})
	require.NoError(t, err)
	assert.Len(t, tiktok, 2)

	aliceTikTok, err := repo.FindAll(map[string]interface{}{"platform": domain.PlatformTikTok, "user_id": "alice"})
	require.NoError(t, err)
	assert.Len(t, aliceTikTok, 1)

	_, err = repo.FindAll(map[string]interface{}{"url; DROP TABLE downloads": "x"})
	assert.Error(t, err)
}

func TestSQLiteRepository_FailOrphaned(t *testing.T) {
	repo := setupTestRepo(t)

	stuck := domain.NewDownload("https://www.instagram.com/p/1/", domain.PlatformInstagram, "u")
	stuck.MarkProcessing()
	queued := domain.NewDownload("https://www.instagram.com/p/2/", domain.PlatformInstagram, "u")
	require.NoError(t, repo.Create(stuck))
	require.NoError(t, repo.Create(queued))

	n, err := repo.FailOrphaned("interrupted by shutdown")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindByID(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, found.Status)
	assert.Equal(t, "interrupted by shutdown", found.ErrorMessage)

	found, err = repo.FindByID(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, found.Status)
}

func TestSQLiteRepository_GetStats(t *testing.T) {
	repo := setupTestRepo(t)

	completed := domain.NewDownload("https://x.com/u/status/1", domain.PlatformTwitter, "u")
	completed.MarkCompleted("m", "f")
	failed := domain.NewDownload("https://www.facebook.com/watch?v=1", domain.PlatformFacebook, "u")
	failed.MarkFailed(domain.ErrNoMediaFound)
	queued := domain.NewDownload("https://x.com/u/status/2", domain.PlatformTwitter, "u")

	for _, dl := range []*domain.Download{completed, failed, queued} {
		require.NoError(t, repo.Create(dl))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(2), stats.ByPlatform[domain.PlatformTwitter])
	assert.Equal(t, int64(1), stats.ByPlatform[domain.PlatformFacebook])
}
