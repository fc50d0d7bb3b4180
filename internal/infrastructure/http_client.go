package infrastructure

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wavezboy/social.downloader/internal/domain"
)

const (
	maxResponseBytes = 10 * 1024 * 1024
	maxErrorBytes    = 4 * 1024
)

// NewHTTPClient creates an HTTP client with a fixed request timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = domain.DefaultResolveTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// upstreamError builds an ErrUpstreamAPI error from a non-2xx response,
// carrying the upstream message when one can be extracted.
func upstreamError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	message := extractErrorMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrUpstreamAPI, service, resp.StatusCode, message)
}

// extractErrorMessage pulls a human readable message out of common JSON error shapes
func extractErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Title   string `json:"title"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		case len(payload.Errors) > 0 && payload.Errors[0].Message != "":
			return payload.Errors[0].Message
		case payload.Title != "":
			return payload.Title
		}
	}
	return strings.TrimSpace(string(body))
}

// decodeJSON decodes a bounded JSON response body
func decodeJSON(service string, resp *http.Response, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %s returned malformed response: %v", domain.ErrUpstreamAPI, service, err)
	}
	return nil
}
