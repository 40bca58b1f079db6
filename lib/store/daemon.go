// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the IPFS daemon HTTP API address on a stock
// local installation.
const DefaultEndpoint = "http://127.0.0.1:5001"

// defaultFetchTimeout bounds every daemon call. A content-addressed
// fetch that has not answered in this window is resolved as
// ErrTimeout rather than hanging the request.
const defaultFetchTimeout = 10 * time.Second

// DaemonClient talks to an IPFS daemon over its HTTP API. Every call
// is bounded by the configured timeout. The zero value is not usable;
// construct with [NewDaemonClient].
type DaemonClient struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// DaemonConfig configures a DaemonClient.
type DaemonConfig struct {
	// Endpoint is the daemon API base URL. Defaults to
	// [DefaultEndpoint] when empty.
	Endpoint string

	// Timeout bounds each Cat and IsAlive call. Defaults to 10s.
	Timeout time.Duration

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewDaemonClient creates a client for the daemon HTTP API.
func NewDaemonClient(config DaemonConfig) *DaemonClient {
	endpoint := strings.TrimSuffix(config.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DaemonClient{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Cat fetches the blob for hash via /api/v0/cat. The daemon API is
// POST-only since go-ipfs 0.5.
func (c *DaemonClient) Cat(ctx context.Context, hash string) ([]byte, error) {
	body, err := c.call(ctx, "/api/v0/cat?arg="+url.QueryEscape(hash))
	if err != nil {
		return nil, fmt.Errorf("cat %s: %w", hash, err)
	}
	return body, nil
}

// IsAlive reports whether the daemon answers /api/v0/version within
// the fetch timeout.
func (c *DaemonClient) IsAlive(ctx context.Context) bool {
	_, err := c.call(ctx, "/api/v0/version")
	if err != nil {
		c.logger.Debug("daemon liveness check failed", "endpoint", c.endpoint, "error", err)
		return false
	}
	return true
}

// Version returns the daemon's reported version string.
func (c *DaemonClient) Version(ctx context.Context) (string, error) {
	body, err := c.call(ctx, "/api/v0/version")
	if err != nil {
		return "", err
	}
	var parsed struct {
		Version string `json:"Version"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: parsing version response: %v", ErrBackend, err)
	}
	return parsed.Version, nil
}

// call performs one bounded POST to the daemon API and classifies the
// outcome into the package error taxonomy.
func (c *DaemonClient) call(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrBackend, err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: reading response after %v", ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%w: reading response: %v", ErrBackend, err)
	}

	if response.StatusCode == http.StatusOK {
		return body, nil
	}

	// The daemon reports errors as JSON with a Message field. A
	// missing block surfaces as a message, not a 404.
	message := string(body)
	var apiError struct {
		Message string `json:"Message"`
	}
	if json.Unmarshal(body, &apiError) == nil && apiError.Message != "" {
		message = apiError.Message
	}
	if response.StatusCode == http.StatusNotFound || strings.Contains(message, "not found") {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, message)
	}
	return nil, fmt.Errorf("%w: status %d: %s", ErrBackend, response.StatusCode, message)
}
