package domain

import (
	"context"
	"time"
)

// DefaultResolveTimeout is the budget a resolver gets when it declares none
const DefaultResolveTimeout = 30 * time.Second

// ResolutionRequest is one resolution attempt. It is never mutated.
type ResolutionRequest struct {
	URL      string
	Platform Platform
	UserID   string
}

// ResolutionResult is the outcome of a successful resolution
type ResolutionResult struct {
	MediaURL string   `json:"media_url"`
	Platform Platform `json:"platform"`
}

// Resolver defines the interface for platform-specific media URL extraction
type Resolver interface {
	// Resolve returns the direct media URL behind a post URL
	Resolve(ctx context.Context, url string) (string, error)

	// Platform returns the platform this resolver handles
	Platform() Platform

	// Timeout returns the time budget for a single Resolve call
	Timeout() time.Duration
}

// ResolutionCache stores successful resolutions keyed by post URL
type ResolutionCache interface {
	Get(ctx context.Context, url string) (*ResolutionResult, bool, error)
	Set(ctx context.Context, url string, result *ResolutionResult) error
}

// MediaFetcher retrieves a resolved media asset and stores it
type MediaFetcher interface {
	// Fetch downloads the media and returns the stored file path
	Fetch(ctx context.Context, result *ResolutionResult, userID string) (string, error)
}
