package infrastructure

import (
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// NewResolvers builds one resolver per supported platform. Browser-driven
// platforms share launcher; without one they are left unregistered.
func NewResolvers(config *domain.Config, launcher SessionLauncher, logger *zap.Logger) []domain.Resolver {
	apiResolvers := map[domain.Platform]domain.Resolver{
		domain.PlatformTikTok:  NewTikTokResolver(&config.TikTok, logger),
		domain.PlatformTwitter: NewTwitterResolver(&config.Twitter, logger),
	}

	platforms := domain.SupportedPlatforms()
	resolvers := make([]domain.Resolver, 0, len(platforms))
	for _, platform := range platforms {
		if !platform.IsBrowserDriven() {
			if r, ok := apiResolvers[platform]; ok {
				resolvers = append(resolvers, r)
			}
			continue
		}

		if launcher == nil {
			logger.Warn("No browser launcher, platform disabled", zap.String("platform", string(platform)))
			continue
		}

		marker := ""
		if platform == domain.PlatformInstagram {
			marker = instagramImageMarker
		}
		resolvers = append(resolvers, newBrowserResolver(platform, launcher, &config.Browser, marker, logger))
	}
	return resolvers
}
