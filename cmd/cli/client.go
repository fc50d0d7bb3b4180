package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wavezboy/social.downloader/internal/domain"
)

// downloadView mirrors the server's download response
type downloadView struct {
	domain.Download
	FileURL string `json:"file_url,omitempty"`
}

// apiError is the error body returned by the server
type apiError struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Platform string `json:"platform"`
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *apiClient) post(path string, body, out interface{}) error {
	return c.do(http.MethodPost, path, body, out)
}

func (c *apiClient) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *apiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Kind != "" {
				return fmt.Errorf("%s (%s, HTTP %d)", apiErr.Error, apiErr.Kind, resp.StatusCode)
			}
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
