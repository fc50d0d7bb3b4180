package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

const instagramImageMarker = "media"

// BrowserResolver resolves posts by rendering them in a headless browser
// and reading the media element out of the DOM. Used for Instagram and Facebook.
type BrowserResolver struct {
	platform    domain.Platform
	launcher    SessionLauncher
	timeout     time.Duration
	imageMarker string
	logger      *zap.Logger
}

// NewInstagramResolver creates a resolver that prefers video and falls back to images
func NewInstagramResolver(launcher SessionLauncher, config *domain.BrowserConfig, logger *zap.Logger) *BrowserResolver {
	return newBrowserResolver(domain.PlatformInstagram, launcher, config, instagramImageMarker, logger)
}

// NewFacebookResolver creates a video-only resolver
func NewFacebookResolver(launcher SessionLauncher, config *domain.BrowserConfig, logger *zap.Logger) *BrowserResolver {
	return newBrowserResolver(domain.PlatformFacebook, launcher, config, "", logger)
}

func newBrowserResolver(platform domain.Platform, launcher SessionLauncher, config *domain.BrowserConfig, imageMarker string, logger *zap.Logger) *BrowserResolver {
	timeout := config.NavigationTimeout
	if timeout <= 0 {
		timeout = domain.DefaultResolveTimeout
	}
	return &BrowserResolver{
		platform:    platform,
		launcher:    launcher,
		timeout:     timeout,
		imageMarker: imageMarker,
		logger:      logger.With(zap.String("platform", string(platform))),
	}
}

// Platform returns the platform this resolver handles
func (r *BrowserResolver) Platform() domain.Platform {
	return r.platform
}

// Timeout returns the navigation budget
func (r *BrowserResolver) Timeout() time.Duration {
	return r.timeout
}

// Resolve renders the post and returns the first media source found.
// The browser session is closed on every path.
func (r *BrowserResolver) Resolve(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: browser did not start within %s", domain.ErrNavigationTimeout, r.timeout)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrNavigationFailed, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Warn("Failed to close browser session", zap.Error(cerr))
		}
	}()

	start := time.Now()
	if err := session.Navigate(ctx, url); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: page did not settle within %s", domain.ErrNavigationTimeout, r.timeout)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrNavigationFailed, err)
	}

	html, err := session.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: page did not settle within %s", domain.ErrNavigationTimeout, r.timeout)
		}
		return "", fmt.Errorf("%w: failed to read document: %v", domain.ErrNavigationFailed, err)
	}

	mediaURL, err := extractMediaSource(html, url, r.imageMarker)
	if err != nil {
		return "", err
	}
	if mediaURL == "" {
		return "", fmt.Errorf("%w: no media element on page", domain.ErrNoMediaFound)
	}

	r.logger.Debug("Media element found",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)))

	return mediaURL, nil
}
