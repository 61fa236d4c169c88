// Package search implements the client for the external search provider. The
// provider exposes a query-by-keyword API returning scored article hits; the
// client adds the retry budget, timeouts, and rate limiting around it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"graftwatch/internal/config"
	"graftwatch/internal/logger"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Hit is one raw result returned by the provider. Score and published date
// are optional and passed through unchanged.
type Hit struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Score         *float64 `json:"score"`
	PublishedDate string   `json:"published_date"`
}

// Query is one provider search request.
type Query struct {
	Text           string
	IncludeDomains []string
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
}

type searchResponse struct {
	Results []Hit `json:"results"`
}

// Client queries the search provider with config-driven retry logic and a
// token-bucket rate limit shared across concurrent keyword queries.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *logger.Logger
	endpoint    string
	apiKey      string
	searchDepth string
	maxResults  int
	retryPolicy *config.RetryPolicy
}

// NewClient creates a new provider client. The API key is injected by the
// caller; it never appears in configuration files.
func NewClient(cfg *config.SearchConfig, retryPolicy *config.RetryPolicy, apiKey string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: retryPolicy.GetTimeout(),
		},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:      log,
		endpoint:    cfg.Endpoint,
		apiKey:      apiKey,
		searchDepth: cfg.SearchDepth,
		maxResults:  cfg.MaxResults,
		retryPolicy: retryPolicy,
	}
}

// Search runs one query against the provider, retrying transient failures
// within the retry budget. On exhaustion it returns the last error.
func (c *Client) Search(ctx context.Context, q Query) ([]Hit, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryPolicy.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		hits, statusCode, retryAfter, err := c.doSearch(ctx, q)
		if err == nil {
			return hits, nil
		}

		lastErr = fmt.Errorf("search failed (attempt %d/%d): %w", attempt, c.retryPolicy.MaxAttempts, err)

		// Client errors such as 400/401 never recover within a run
		if statusCode != 0 && !isRetryableStatus(statusCode) {
			return nil, lastErr
		}

		if attempt < c.retryPolicy.MaxAttempts {
			delay := c.retryPolicy.GetRetryDelay(attempt + 1)
			if retryAfter > delay {
				delay = retryAfter
			}

			c.logger.Debug("retrying provider query", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, lastErr
}

// doSearch performs one request. It returns the response status code (0 on
// transport failure) and the Retry-After hint when the provider throttled the
// request.
func (c *Client) doSearch(ctx context.Context, q Query) ([]Hit, int, time.Duration, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:         c.apiKey,
		Query:          q.Text,
		SearchDepth:    c.searchDepth,
		IncludeDomains: q.IncludeDomains,
		MaxResults:     c.maxResults,
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		var retryAfter time.Duration
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}

		return nil, resp.StatusCode, retryAfter, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return parsed.Results, resp.StatusCode, 0, nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout: // 408
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	}

	return false
}
