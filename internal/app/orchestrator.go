package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// Orchestrator resolves post URLs into direct media URLs by dispatching to
// the resolver registered for the detected platform.
type Orchestrator struct {
	resolvers map[domain.Platform]domain.Resolver
	cache     domain.ResolutionCache
	logger    *zap.Logger
}

// NewOrchestrator creates a new orchestrator. cache may be nil.
func NewOrchestrator(resolvers []domain.Resolver, cache domain.ResolutionCache, logger *zap.Logger) *Orchestrator {
	registry := make(map[domain.Platform]domain.Resolver, len(resolvers))
	for _, r := range resolvers {
		registry[r.Platform()] = r
	}
	return &Orchestrator{
		resolvers: registry,
		cache:     cache,
		logger:    logger,
	}
}

// Resolve identifies the platform of url and returns the direct media URL.
// Every failure is a *domain.ResolutionError.
func (o *Orchestrator) Resolve(ctx context.Context, url, userID string) (*domain.ResolutionResult, error) {
	platform := domain.DetectPlatform(url)
	if platform == "" {
		return nil, domain.NewResolutionError("", fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, url))
	}

	resolver, ok := o.resolvers[platform]
	if !ok {
		return nil, domain.NewResolutionError(platform, fmt.Errorf("%w: no resolver registered for %s", domain.ErrUnsupportedPlatform, platform))
	}

	req := domain.ResolutionRequest{URL: url, Platform: platform, UserID: userID}
	log := o.logger.With(
		zap.String("platform", string(req.Platform)),
		zap.String("user_id", req.UserID))

	if cached := o.lookupCache(ctx, req, log); cached != nil {
		return cached, nil
	}

	timeout := resolver.Timeout()
	if timeout <= 0 {
		timeout = domain.DefaultResolveTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	mediaURL, err := resolver.Resolve(rctx, req.URL)
	if err != nil {
		resErr := domain.NewResolutionError(platform, err)
		log.Warn("Resolution failed",
			zap.String("url", req.URL),
			zap.String("kind", string(resErr.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, resErr
	}

	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return nil, domain.NewResolutionError(platform, fmt.Errorf("%w: resolver returned an empty url", domain.ErrNoMediaFound))
	}

	result := &domain.ResolutionResult{MediaURL: mediaURL, Platform: platform}

	log.Info("Resolved media",
		zap.String("url", req.URL),
		zap.Duration("elapsed", time.Since(start)))

	o.storeCache(ctx, req, result, log)
	return result, nil
}

func (o *Orchestrator) lookupCache(ctx context.Context, req domain.ResolutionRequest, log *zap.Logger) *domain.ResolutionResult {
	if o.cache == nil {
		return nil
	}
	cached, ok, err := o.cache.Get(ctx, req.URL)
	if err != nil {
		log.Warn("Resolution cache lookup failed", zap.Error(err))
		return nil
	}
	if !ok || cached.Platform != req.Platform {
		return nil
	}
	log.Debug("Resolution cache hit", zap.String("url", req.URL))
	return cached
}

func (o *Orchestrator) storeCache(ctx context.Context, req domain.ResolutionRequest, result *domain.ResolutionResult, log *zap.Logger) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, req.URL, result); err != nil {
		log.Warn("Resolution cache store failed", zap.Error(err))
	}
}
