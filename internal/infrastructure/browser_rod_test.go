package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

func TestRodLauncher_LaunchHonoursExpiredContext(t *testing.T) {
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no local chromium")
	}

	l := NewRodLauncher(&domain.BrowserConfig{Binary: bin, Headless: true, NoSandbox: true}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	session, err := l.Launch(ctx)
	if session != nil {
		session.Close()
	}

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRodLauncher_SessionLifecycle(t *testing.T) {
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no local chromium")
	}

	l := NewRodLauncher(&domain.BrowserConfig{Binary: bin, Headless: true, NoSandbox: true, IdleWait: 100 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := l.Launch(ctx)
	require.NoError(t, err)

	_, err = session.HTML(ctx)
	assert.Error(t, err, "html before navigate")

	require.NoError(t, session.Navigate(ctx, "about:blank"))
	html, err := session.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "<html")

	assert.Error(t, session.Navigate(ctx, "about:blank"), "a session navigates once")
	assert.NoError(t, session.Close())
}
