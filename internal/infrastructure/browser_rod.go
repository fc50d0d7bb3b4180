package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// BrowserSession is a single-use browser automation session bound to one navigation
type BrowserSession interface {
	// Navigate loads the URL and waits until the network is idle
	Navigate(ctx context.Context, url string) error

	// HTML returns the rendered document
	HTML(ctx context.Context) (string, error)

	// Close releases the page and the browser process
	Close() error
}

// SessionLauncher starts isolated browser sessions
type SessionLauncher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

// Requests of these types can stay open indefinitely on media pages and
// must not keep the idle wait from settling.
var idleExcludedTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeMedia,
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// RodLauncher launches one headless Chromium process per session
type RodLauncher struct {
	config *domain.BrowserConfig
	logger *zap.Logger
}

// NewRodLauncher creates a new rod-backed session launcher
func NewRodLauncher(config *domain.BrowserConfig, logger *zap.Logger) *RodLauncher {
	return &RodLauncher{
		config: config,
		logger: logger,
	}
}

// Launch starts a fresh browser process and connects to it. Both steps,
// including any browser download rod performs, are bounded by ctx.
func (l *RodLauncher) Launch(ctx context.Context) (BrowserSession, error) {
	bin := l.config.Binary
	if bin == "" {
		if path, found := launcher.LookPath(); found {
			bin = path
		}
	}

	ln := launcher.New().
		Context(ctx).
		Leakless(false).
		Headless(l.config.Headless).
		NoSandbox(l.config.NoSandbox).
		Set("disable-setuid-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if bin != "" {
		ln = ln.Bin(bin)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		ln.Kill()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	// Close must still reach the browser once ctx has expired.
	browser = browser.Context(context.Background())

	l.logger.Debug("Browser session started", zap.String("control_url", controlURL))

	return &rodSession{
		launcher:  ln,
		browser:   browser,
		stealth:   l.config.Stealth,
		userAgent: l.config.UserAgent,
		idleWait:  l.config.IdleWait,
	}, nil
}

type rodSession struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	stealth   bool
	userAgent string
	idleWait  time.Duration
}

func (s *rodSession) openPage() (*rod.Page, error) {
	if s.stealth {
		return stealth.Page(s.browser)
	}
	return s.browser.Page(proto.TargetCreateTarget{})
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if s.page != nil {
		return errors.New("session already navigated")
	}

	page, err := s.openPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	p := page.Context(ctx)
	if s.userAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.userAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	idle := s.idleWait
	if idle <= 0 {
		idle = 500 * time.Millisecond
	}
	waitIdle := p.WaitRequestIdle(idle, nil, nil, idleExcludedTypes)

	if err := p.Navigate(url); err != nil {
		return err
	}
	waitIdle()
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.WaitLoad()
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	if s.page == nil {
		return "", errors.New("session has no page")
	}
	return s.page.Context(ctx).HTML()
}

func (s *rodSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
		s.launcher.Kill()
	}
	s.launcher.Cleanup()
	return errors.Join(errs...)
}
