package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wavezboy/social.downloader/internal/domain"
)

type stubQueue struct{}

func (stubQueue) AddDownload(url, userID string) (*domain.Download, error) {
	return domain.NewDownload(url, domain.DetectPlatform(url), userID), nil
}
func (stubQueue) GetDownload(id string) (*domain.Download, error) { return nil, nil }
func (stubQueue) ListDownloads(map[string]interface{}) ([]*domain.Download, error) {
	return nil, nil
}
func (stubQueue) GetStats() (*domain.DownloadStats, error) { return &domain.DownloadStats{}, nil }
func (stubQueue) CancelDownload(id string) error { return nil }
func (stubQueue) DeleteDownload(id string) error { return nil }
func (stubQueue) IsRunning() bool { return true }

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, url, userID string) (*domain.ResolutionResult, error) {
	return &domain.ResolutionResult{MediaURL: "https://cdn.example/v.mp4", Platform: domain.PlatformTikTok}, nil
}

func newTestRouter(t *testing.T) (http.Handler, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/files", 0755))
	return SetupRouter(RouterDeps{
		Queue:    stubQueue{},
		Resolver: stubResolver{},
		FilesFs:  fs,
		FilesDir: "/data/files",
		Logger:   zap.NewNop(),
	}), fs
}

func TestRouter_Routes(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodPost, "/api/v1/resolve", `{"url":"https://www.tiktok.com/@u/video/1"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/downloads", `{"url":"https://www.tiktok.com/@u/video/1"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/downloads", "", http.StatusOK},
		{http.MethodGet, "/api/v1/downloads/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/downloads/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_ServesStoredFiles(t *testing.T) {
	router, fs := newTestRouter(t)
	require.NoError(t, afero.WriteFile(fs, "/data/files/media_u1_1.mp4", []byte("video-bytes"), 0644))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/media_u1_1.mp4", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video-bytes", w.Body.String())
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
