package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a resolution failure
type ErrorKind string

const (
	KindUnsupportedPlatform ErrorKind = "unsupported_platform"
	KindInvalidURL          ErrorKind = "invalid_url"
	KindNavigationTimeout   ErrorKind = "navigation_timeout"
	KindNavigationFailed    ErrorKind = "navigation_failed"
	KindUpstreamAPI         ErrorKind = "upstream_api_error"
	KindNoMediaFound        ErrorKind = "no_media_found"
	KindInternal            ErrorKind = "internal"
)

// Sentinel errors returned (wrapped) by resolvers
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidURL          = errors.New("invalid url")
	ErrNavigationTimeout   = errors.New("navigation timeout")
	ErrNavigationFailed    = errors.New("navigation failed")
	ErrUpstreamAPI         = errors.New("upstream api error")
	ErrNoMediaFound        = errors.New("no media found")
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindUnsupportedPlatform, ErrUnsupportedPlatform},
	{KindInvalidURL, ErrInvalidURL},
	{KindNavigationTimeout, ErrNavigationTimeout},
	{KindNavigationFailed, ErrNavigationFailed},
	{KindUpstreamAPI, ErrUpstreamAPI},
	{KindNoMediaFound, ErrNoMediaFound},
}

// KindOf returns the kind of a resolution error chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Kind
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindInternal
}

// ResolutionError is the single failure shape returned by the orchestrator
type ResolutionError struct {
	Platform Platform
	Kind     ErrorKind
	Message  string
	Err      error
}

// NewResolutionError wraps a resolver failure for the given platform
func NewResolutionError(platform Platform, err error) *ResolutionError {
	return &ResolutionError{
		Platform: platform,
		Kind:     KindOf(err),
		Message:  err.Error(),
		Err:      err,
	}
}

func (e *ResolutionError) Error() string {
	if e.Platform == "" {
		return fmt.Sprintf("resolution failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s resolution failed (%s): %s", e.Platform, e.Kind, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
