package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/wavezboy/social.downloader/internal/domain"
	"go.uber.org/zap"
)

// TwitterResolver resolves tweets through the Twitter API v2
type TwitterResolver struct {
	config *domain.TwitterConfig
	client *http.Client
	logger *zap.Logger
}

type twitterVariant struct {
	BitRate     int    `json:"bit_rate"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

type twitterMedia struct {
	MediaKey string           `json:"media_key"`
	Type     string           `json:"type"`
	URL      string           `json:"url"`
	Variants []twitterVariant `json:"variants"`
}

// tweetResponse is the subset of GET /2/tweets/:id we read
type tweetResponse struct {
	Includes *struct {
		Media []twitterMedia `json:"media"`
	} `json:"includes"`
}

// NewTwitterResolver creates a new Twitter resolver
func NewTwitterResolver(config *domain.TwitterConfig, logger *zap.Logger) *TwitterResolver {
	return &TwitterResolver{
		config: config,
		client: NewHTTPClient(config.Timeout),
		logger: logger,
	}
}

// Platform returns the platform this resolver handles
func (r *TwitterResolver) Platform() domain.Platform {
	return domain.PlatformTwitter
}

// Timeout returns the request budget
func (r *TwitterResolver) Timeout() time.Duration {
	if r.config.Timeout <= 0 {
		return domain.DefaultResolveTimeout
	}
	return r.config.Timeout
}

// ExtractTweetID returns the numeric tweet id at the end of a status URL
func ExtractTweetID(rawURL string) (string, error) {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	id := s[strings.LastIndex(s, "/")+1:]

	if id == "" {
		return "", fmt.Errorf("%w: no tweet id in %q", domain.ErrInvalidURL, rawURL)
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", fmt.Errorf("%w: tweet id %q is not numeric", domain.ErrInvalidURL, id)
	}
	return id, nil
}

// Resolve fetches the tweet with its media expansion and returns the first
// attached media URL.
func (r *TwitterResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	tweetID, err := ExtractTweetID(rawURL)
	if err != nil {
		return "", err
	}

	if r.config.BearerToken == "" {
		return "", fmt.Errorf("%w: twitter bearer token is not configured", domain.ErrUpstreamAPI)
	}

	endpoint := fmt.Sprintf("%s/2/tweets/%s?%s", strings.TrimRight(r.config.APIBase, "/"), tweetID, url.Values{
		"expansions":   {"attachments.media_keys"},
		"media.fields": {"url,type,variants"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", domain.ErrUpstreamAPI, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.config.BearerToken)

	r.logger.Debug("Requesting tweet", zap.String("tweet_id", tweetID))

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: twitter request failed: %v", domain.ErrUpstreamAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", upstreamError("twitter api", resp)
	}

	var payload tweetResponse
	if err := decodeJSON("twitter api", resp, &payload); err != nil {
		return "", err
	}

	if payload.Includes == nil || len(payload.Includes.Media) == 0 {
		return "", fmt.Errorf("%w: tweet %s has no attached media", domain.ErrNoMediaFound, tweetID)
	}

	media := payload.Includes.Media[0]
	if media.URL != "" {
		return media.URL, nil
	}
	if best, ok := bestMP4Variant(media.Variants); ok {
		return best.URL, nil
	}

	return "", fmt.Errorf("%w: tweet %s media has no url", domain.ErrNoMediaFound, tweetID)
}

// bestMP4Variant picks the highest bitrate mp4 rendition of a video
func bestMP4Variant(variants []twitterVariant) (twitterVariant, bool) {
	mp4s := lo.Filter(variants, func(v twitterVariant, _ int) bool {
		return v.ContentType == "video/mp4" && v.URL != ""
	})
	if len(mp4s) == 0 {
		return twitterVariant{}, false
	}
	return lo.MaxBy(mp4s, func(a, b twitterVariant) bool {
		return a.BitRate > b.BitRate
	}), true
}
