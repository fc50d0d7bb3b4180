package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// TikTokResolver resolves TikTok posts through a third-party resolution API
type TikTokResolver struct {
	config *domain.TikTokConfig
	client *http.Client
	logger *zap.Logger
}

// tiktokResponse is the subset of the resolution API payload we read
type tiktokResponse struct {
	Video *struct {
		NoWatermark string `json:"no_watermark"`
		URL         string `json:"url"`
	} `json:"video"`
}

// NewTikTokResolver creates a new TikTok resolver
func NewTikTokResolver(config *domain.TikTokConfig, logger *zap.Logger) *TikTokResolver {
	return &TikTokResolver{
		config: config,
		client: NewHTTPClient(config.Timeout),
		logger: logger,
	}
}

// Platform returns the platform this resolver handles
func (r *TikTokResolver) Platform() domain.Platform {
	return domain.PlatformTikTok
}

// Timeout returns the request budget
func (r *TikTokResolver) Timeout() time.Duration {
	if r.config.Timeout <= 0 {
		return domain.DefaultResolveTimeout
	}
	return r.config.Timeout
}

// Resolve posts the video URL to the resolution API and returns the
// watermark-free URL when available, otherwise the standard one.
func (r *TikTokResolver) Resolve(ctx context.Context, url string) (string, error) {
	if r.config.APIKey == "" {
		return "", fmt.Errorf("%w: tiktok api key is not configured", domain.ErrUpstreamAPI)
	}

	body, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", domain.ErrUpstreamAPI, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)

	r.logger.Debug("Requesting TikTok resolution", zap.String("url", url))

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: tiktok request failed: %v", domain.ErrUpstreamAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", upstreamError("tiktok api", resp)
	}

	var payload tiktokResponse
	if err := decodeJSON("tiktok api", resp, &payload); err != nil {
		return "", err
	}

	if payload.Video != nil {
		if payload.Video.NoWatermark != "" {
			return payload.Video.NoWatermark, nil
		}
		if payload.Video.URL != "" {
			return payload.Video.URL, nil
		}
	}

	return "", fmt.Errorf("%w: tiktok response has no video url", domain.ErrNoMediaFound)
}
