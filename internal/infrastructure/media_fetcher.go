package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

var knownMediaExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"webm": true,
	"m4v":  true,
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// HTTPMediaFetcher streams resolved media into a filesystem
type HTTPMediaFetcher struct {
	fs        afero.Fs
	filesDir  string
	client    *http.Client
	userAgent string
	now       func() time.Time
	logger    *zap.Logger
}

// NewHTTPMediaFetcher creates a new media fetcher writing into filesDir on fs
func NewHTTPMediaFetcher(fs afero.Fs, filesDir string, timeout time.Duration, userAgent string, logger *zap.Logger) *HTTPMediaFetcher {
	return &HTTPMediaFetcher{
		fs:        fs,
		filesDir:  filesDir,
		client:    NewHTTPClient(timeout),
		userAgent: userAgent,
		now:       time.Now,
		logger:    logger,
	}
}

// MediaFileName returns the stored file name for a user's media
func MediaFileName(userID string, platform domain.Platform, mediaURL string, at time.Time) string {
	return fmt.Sprintf("media_%s_%d.%s", sanitizeFileComponent(userID), at.UnixMilli(), mediaExtension(platform, mediaURL))
}

// mediaExtension prefers the extension in the media URL path, falling back
// to jpg for Instagram and mp4 for everything else.
func mediaExtension(platform domain.Platform, mediaURL string) string {
	if u, err := url.Parse(mediaURL); err == nil {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		if knownMediaExtensions[ext] {
			if ext == "jpeg" {
				return "jpg"
			}
			return ext
		}
	}
	if platform == domain.PlatformInstagram {
		return "jpg"
	}
	return "mp4"
}

func sanitizeFileComponent(s string) string {
	if s == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}

// Fetch downloads the resolved media and returns the stored file path
func (f *HTTPMediaFetcher) Fetch(ctx context.Context, result *domain.ResolutionResult, userID string) (string, error) {
	if err := f.fs.MkdirAll(f.filesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create files directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.MediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create media request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("media request returned status %d", resp.StatusCode)
	}

	file, filePath, err := f.createMediaFile(MediaFileName(userID, result.Platform, result.MediaURL, f.now()))
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}

	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		f.fs.Remove(filePath)
		if copyErr != nil {
			return "", fmt.Errorf("failed to write media file: %w", copyErr)
		}
		return "", fmt.Errorf("failed to close media file: %w", closeErr)
	}

	f.logger.Info("Media stored",
		zap.String("platform", string(result.Platform)),
		zap.String("file_path", filePath),
		zap.Int64("bytes", written))

	return filePath, nil
}

// maxNameAttempts bounds the suffixes tried when a file name is taken
const maxNameAttempts = 100

// createMediaFile creates name exclusively in filesDir. A taken name gets a
// _1, _2, ... suffix before the extension so concurrent downloads in the same
// millisecond never share a file.
func (f *HTTPMediaFetcher) createMediaFile(name string) (afero.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; ; i++ {
		filePath := filepath.Join(f.filesDir, candidate)
		file, err := f.fs.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, filePath, nil
		}
		if !errors.Is(err, os.ErrExist) || i >= maxNameAttempts {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}
