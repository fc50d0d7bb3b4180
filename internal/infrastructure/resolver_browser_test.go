package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// fakeSession is a scripted BrowserSession
type fakeSession struct {
	html        string
	navigateErr error
	htmlErr     error
	blockUntil  bool // block Navigate until the context is done
	navigated   string
	closed      int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.navigated = url
	if s.blockUntil {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.navigateErr
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	return s.html, s.htmlErr
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeLauncher struct {
	session  *fakeSession
	err      error
	hang     bool // block Launch until the context is done
	launched int
}

func (l *fakeLauncher) Launch(ctx context.Context) (BrowserSession, error) {
	l.launched++
	if l.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

func browserTestConfig(timeout time.Duration) *domain.BrowserConfig {
	return &domain.BrowserConfig{NavigationTimeout: timeout}
}

func TestBrowserResolver_InstagramVideo(t *testing.T) {
	session := &fakeSession{html: `<video src="https://cdn.example/reel.mp4"></video>`}
	launcher := &fakeLauncher{session: session}
	resolver := NewInstagramResolver(launcher, browserTestConfig(time.Second), zap.NewNop())

	mediaURL, err := resolver.Resolve(context.Background(), "https://www.instagram.com/reel/abc/")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/reel.mp4", mediaURL)
	assert.Equal(t, "https://www.instagram.com/reel/abc/", session.navigated)
	assert.Equal(t, 1, session.closed)
}

func TestBrowserResolver_InstagramImageFallback(t *testing.T) {
	session := &fakeSession{html: `<img src="https://scontent.cdninstagram.com/media/p.jpg">`}
	resolver := NewInstagramResolver(&fakeLauncher{session: session}, browserTestConfig(time.Second), zap.NewNop())

	mediaURL, err := resolver.Resolve(context.Background(), "https://www.instagram.com/p/abc/")

	require.NoError(t, err)
	assert.Equal(t, "https://scontent.cdninstagram.com/media/p.jpg", mediaURL)
	assert.Equal(t, 1, session.closed)
}

func TestBrowserResolver_FacebookIsVideoOnly(t *testing.T) {
	session := &fakeSession{html: `<img src="https://scontent.xx.fbcdn.net/media/p.jpg">`}
	resolver := NewFacebookResolver(&fakeLauncher{session: session}, browserTestConfig(time.Second), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "https://www.facebook.com/watch?v=1")

	assert.ErrorIs(t, err, domain.ErrNoMediaFound)
	assert.Equal(t, 1, session.closed)
	assert.Equal(t, domain.PlatformFacebook, resolver.Platform())
}

func TestBrowserResolver_NoMediaClosesSession(t *testing.T) {
	session := &fakeSession{html: `<html><body>nothing here</body></html>`}
	resolver := NewInstagramResolver(&fakeLauncher{session: session}, browserTestConfig(time.Second), zap.NewNop())

	mediaURL, err := resolver.Resolve(context.Background(), "https://www.instagram.com/p/abc/")

	assert.ErrorIs(t, err, domain.ErrNoMediaFound)
	assert.Empty(t, mediaURL)
	assert.Equal(t, 1, session.closed)
}

func TestBrowserResolver_NavigationTimeout(t *testing.T) {
	session := &fakeSession{blockUntil: true}
	resolver := NewInstagramResolver(&fakeLauncher{session: session}, browserTestConfig(50*time.Millisecond), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "https://www.instagram.com/p/abc/")

	assert.ErrorIs(t, err, domain.ErrNavigationTimeout)
	assert.Equal(t, 1, session.closed)
}

func TestBrowserResolver_NavigationFailure(t *testing.T) {
	session := &fakeSession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	resolver := NewFacebookResolver(&fakeLauncher{session: session}, browserTestConfig(time.Second), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "https://www.facebook.com/watch?v=1")

	assert.ErrorIs(t, err, domain.ErrNavigationFailed)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, 1, session.closed)
}

func TestBrowserResolver_HTMLFailureClosesSession(t *testing.T) {
	session := &fakeSession{htmlErr: errors.New("target closed")}
	resolver := NewInstagramResolver(&fakeLauncher{session: session}, browserTestConfig(time.Second), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "https://www.instagram.com/p/abc/")

	assert.ErrorIs(t, err, domain.ErrNavigationFailed)
	assert.Equal(t, 1, session.closed)
}

func TestBrowserResolver_LaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("chromium not found")}
	resolver := NewInstagramResolver(launcher, browserTestConfig(time.Second), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "https://www.instagram.com/p/abc/")

	assert.ErrorIs(t, err, domain.ErrNavigationFailed)
	assert.Equal(t, 1, launcher.launched)
}

func TestBrowserResolver_LaunchTimeout(t *testing.T) {
	launcher := &fakeLauncher{hang: true}
	resolver := NewFacebookResolver(launcher, browserTestConfig(50*time.Millisecond), zap.NewNop())

	start := time.Now()
	_, err := resolver.Resolve(context.Background(), "https://www.facebook.com/watch?v=1")

	assert.ErrorIs(t, err, domain.ErrNavigationTimeout)
	assert.Equal(t, domain.KindNavigationTimeout, domain.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestBrowserResolver_DefaultTimeout(t *testing.T) {
	resolver := NewInstagramResolver(&fakeLauncher{}, &domain.BrowserConfig{}, zap.NewNop())

	assert.Equal(t, domain.DefaultResolveTimeout, resolver.Timeout())
	assert.Equal(t, domain.PlatformInstagram, resolver.Platform())
}
