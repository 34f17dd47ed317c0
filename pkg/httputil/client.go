package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/tradegate/pkg/logger"
)

// Client is an HTTP client wrapper with rate limiting, retry and logging
// ⭐ SSOT: every outbound collaborator request goes through this client
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
	headers     map[string]string
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// StatusError is returned when the collaborator answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// DefaultInitialDelay is the first retry backoff
const DefaultInitialDelay = 200 * time.Millisecond

// New creates a new HTTP client
func New(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxRetries:   2,
			InitialDelay: DefaultInitialDelay,
			MaxDelay:     2 * time.Second,
			Enabled:      true,
		},
		headers: map[string]string{},
	}
}

// WithTimeout sets the per-request timeout
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = maxRetries > 0
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit caps outbound requests at rps with the given burst. rps <= 0 disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithHeader sets a header sent with every request
func (c *Client) WithHeader(key, value string) *Client {
	if value != "" {
		c.headers[key] = value
	}
	return c
}

// GetJSON performs a GET and decodes a JSON response into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, dest)
}

// PostJSON posts payload as JSON and decodes the JSON response into dest
func (c *Client) PostJSON(ctx context.Context, url string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, body, dest)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, dest interface{}) error {
	resp, err := c.do(ctx, method, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do executes the request with rate limiting, retry and logging
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	startTime := time.Now()
	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	attempts := 1
	if c.retryConfig.Enabled {
		attempts += c.retryConfig.MaxRetries
	}

	var (
		resp  *http.Response
		err   error
		delay = c.retryConfig.InitialDelay
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err = c.once(ctx, method, url, body)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			break
		}
		if attempt == attempts {
			break
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
			"url":     url,
		}).Warn("Retrying HTTP request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	duration := time.Since(startTime)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
			"error":    err.Error(),
		}).Warn("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

func (c *Client) once(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return c.httpClient.Do(req)
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
