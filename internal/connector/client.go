// Package connector provides the shared HTTP plumbing for source
// connectors: a retrying, cache-backed client with per-call timeouts.
package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"statusgen/internal/cache"
	"statusgen/internal/errors"
	"statusgen/internal/logging"
	"statusgen/internal/version"
)

const (
	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries for 5xx and network errors. 4xx never retries.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is doubled per attempt, capped at 5s.
	DefaultRetryBaseDelay = 250 * time.Millisecond
)

// Client wraps http.Client with retry, caching and auth header injection.
type Client struct {
	http    *http.Client
	cache   cache.ResponseCache
	logger  *logging.Logger
	headers map[string]string
}

// NewClient creates a connector client. Headers are applied to every request
// and typically carry the API key, keeping credentials out of URLs and
// therefore out of cache keys.
func NewClient(rc cache.ResponseCache, timeout time.Duration, headers map[string]string, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		cache:   rc,
		logger:  logger,
		headers: headers,
	}
}

// WithHTTPClient swaps the underlying http.Client, for token-source
// transports and tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// GetJSON fetches url, consulting the response cache first. The raw payload
// is returned; callers unmarshal into their own wire types.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	key := cache.CanonicalKey(url)
	if body, ok := c.cache.Get(key); ok {
		c.logger.Debug("Cache hit", map[string]interface{}{"url": key})
		return body, nil
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, body)
	return body, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= DefaultMaxRetries; attempt++ {
		if attempt > 0 {
			delay := DefaultRetryBaseDelay * time.Duration(1<<uint(attempt-1))
			if delay > 5*time.Second {
				delay = 5 * time.Second
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			c.logger.Debug("Retrying request", map[string]interface{}{
				"url":     cache.CanonicalKey(url),
				"attempt": attempt + 1,
			})
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "statusgen/"+version.Version)
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.New(errors.Timeout, "request cancelled or timed out", err)
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = errors.New(errors.RateLimited,
				fmt.Sprintf("upstream returned 429 for %s", cache.CanonicalKey(url)), nil)
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("upstream returned %d", resp.StatusCode)
			continue
		default:
			// 4xx is not retryable.
			return nil, errors.New(errors.UpstreamUnavailable,
				fmt.Sprintf("upstream returned %d for %s", resp.StatusCode, cache.CanonicalKey(url)), nil)
		}
	}
	// A typed error from the final attempt keeps its code, so a 429 that
	// exhausts retries still surfaces as rate limiting.
	if se, ok := lastErr.(*errors.StatusError); ok {
		return nil, se
	}
	return nil, errors.New(errors.UpstreamUnavailable, "request failed after retries", lastErr)
}

// ChunkIDs splits a large id list for chunked fetch-by-id calls.
func ChunkIDs(ids []int, size int) [][]int {
	if size <= 0 {
		size = 100
	}
	var chunks [][]int
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
