package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavezboy/social.downloader/internal/domain"
)

func newTestQueueManager(repo *mockDownloadRepo, resolver MediaResolver, fetcher domain.MediaFetcher, interval time.Duration) *QueueManager {
	dm := newTestDownloadManager(repo, resolver, fetcher)
	return NewQueueManager(repo, dm, disabledNotifier(), &domain.QueueConfig{CheckInterval: interval}, nil)
}

func TestAddDownload_NewURL(t *testing.T) {
	repo := newMockDownloadRepo()
	qm := newTestQueueManager(repo, &fakeMediaResolver{}, &fakeFetcher{}, time.Second)

	download, err := qm.AddDownload("  https://www.tiktok.com/@u/video/1  ", "u1")

	require.NoError(t, err)
	assert.Equal(t, "https://www.tiktok.com/@u/video/1", download.URL)
	assert.Equal(t, domain.PlatformTikTok, download.Platform)
	assert.Equal(t, domain.StatusQueued, download.Status)
	assert.Equal(t, "u1", download.UserID)

	stored, err := qm.GetDownload(download.ID)
	require.NoError(t, err)
	assert.Equal(t, download.ID, stored.ID)
}

func TestAddDownload_Rejects(t *testing.T) {
	tests := []struct {
		name string
		url  string
		kind domain.ErrorKind
	}{
		{"empty", "   ", domain.KindInvalidURL},
		{"unsupported", "https://vimeo.com/1", domain.KindUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockDownloadRepo()
			qm := newTestQueueManager(repo, &fakeMediaResolver{}, &fakeFetcher{}, time.Second)

			download, err := qm.AddDownload(tt.url, "u1")

			assert.Nil(t, download)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Empty(t, repo.downloads)
		})
	}
}

func TestQueueManager_StartStop(t *testing.T) {
	repo := newMockDownloadRepo()
	qm := newTestQueueManager(repo, &fakeMediaResolver{}, &fakeFetcher{}, 10*time.Millisecond)

	require.NoError(t, qm.Start(context.Background()))
	assert.True(t, qm.IsRunning())
	assert.Error(t, qm.Start(context.Background()))

	require.NoError(t, qm.Stop())
	assert.False(t, qm.IsRunning())
	assert.Error(t, qm.Stop())
}

func TestQueueManager_ProcessesQueuedDownloads(t *testing.T) {
	repo := newMockDownloadRepo()
	resolver := &fakeMediaResolver{result: &domain.ResolutionResult{MediaURL: "https://cdn.example/v.mp4", Platform: domain.PlatformTikTok}}
	qm := newTestQueueManager(repo, resolver, &fakeFetcher{filePath: "/data/v.mp4"}, 10*time.Millisecond)

	download, err := qm.AddDownload("https://www.tiktok.com/@u/video/1", "u1")
	require.NoError(t, err)

	require.NoError(t, qm.Start(context.Background()))
	defer qm.Stop()

	require.Eventually(t, func() bool {
		return repo.get(download.ID).Status == domain.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "/data/v.mp4", repo.get(download.ID).FilePath)
}

func TestQueueManager_DoesNotDispatchTwice(t *testing.T) {
	repo := newMockDownloadRepo()
	release := make(chan struct{})
	resolver := &fakeMediaResolver{
		result: &domain.ResolutionResult{MediaURL: "https://cdn.example/v.mp4", Platform: domain.PlatformInstagram},
		block:  release,
	}
	qm := newTestQueueManager(repo, resolver, &fakeFetcher{filePath: "f"}, 5*time.Millisecond)

	first, err := qm.AddDownload("https://www.instagram.com/p/1/", "u1")
	require.NoError(t, err)
	second, err := qm.AddDownload("https://www.instagram.com/p/2/", "u1")
	require.NoError(t, err)

	require.NoError(t, qm.Start(context.Background()))

	// The second download stays queued behind the single instagram slot
	// across many ticks; it must still be processed only once.
	time.Sleep(60 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		return repo.get(first.ID).Status == domain.StatusCompleted &&
			repo.get(second.ID).Status == domain.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, qm.Stop())

	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	assert.Equal(t, 2, resolver.calls)
}

func TestQueueManager_DeleteDownload(t *testing.T) {
	repo := newMockDownloadRepo()
	qm := newTestQueueManager(repo, &fakeMediaResolver{}, &fakeFetcher{}, time.Second)

	download, err := qm.AddDownload("https://x.com/u/status/1", "u1")
	require.NoError(t, err)

	assert.Error(t, qm.DeleteDownload(download.ID), "active downloads cannot be deleted")

	require.NoError(t, qm.CancelDownload(download.ID))
	require.NoError(t, qm.DeleteDownload(download.ID))

	_, err = qm.GetDownload(download.ID)
	assert.Error(t, err)
}

func TestQueueManager_ClaimRespectsPlatformLimit(t *testing.T) {
	repo := newMockDownloadRepo()
	qm := newTestQueueManager(repo, &fakeMediaResolver{}, &fakeFetcher{}, time.Second)

	first := domain.NewDownload("https://www.instagram.com/p/1/", domain.PlatformInstagram, "u1")
	second := domain.NewDownload("https://www.instagram.com/p/2/", domain.PlatformInstagram, "u1")
	other := domain.NewDownload("https://www.tiktok.com/@u/video/1", domain.PlatformTikTok, "u1")

	assert.True(t, qm.claim(first))
	assert.False(t, qm.claim(first), "already in flight")
	assert.False(t, qm.claim(second), "instagram slot is taken")
	assert.True(t, qm.claim(other), "platforms are limited independently")

	qm.release(first.ID)
	assert.True(t, qm.claim(second))
}

func TestQueueManager_StopInterruptsRunningDownloads(t *testing.T) {
	repo := newMockDownloadRepo()
	// Never released: only context cancellation lets the resolver return.
	resolver := &fakeMediaResolver{block: make(chan struct{})}
	qm := newTestQueueManager(repo, resolver, &fakeFetcher{}, 5*time.Millisecond)

	download, err := qm.AddDownload("https://www.facebook.com/watch?v=1", "u1")
	require.NoError(t, err)

	require.NoError(t, qm.Start(context.Background()))
	require.Eventually(t, func() bool {
		return repo.get(download.ID).Status == domain.StatusProcessing
	}, time.Second, 5*time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- qm.Stop() }()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a running download")
	}
	assert.Equal(t, domain.StatusFailed, repo.get(download.ID).Status)
	assert.False(t, qm.IsRunning())
}
