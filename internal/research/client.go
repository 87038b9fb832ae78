// Package research wraps the external search API: one call per query,
// returning a synthesized answer plus citation URLs.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Answer is the result of one search call.
type Answer struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Config configures the research client.
type Config struct {
	BaseURL   string
	APIKey    string
	TimeoutMs int
	// RequestsPerSecond caps the call rate. The pipeline already issues
	// queries sequentially; the limiter enforces the provider's rate on
	// top of that.
	RequestsPerSecond float64
}

// Client calls the search API. Calls do not retry; a failed search fails the
// episode and retries happen at the job level.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a research client with the configured rate limit
// (default one request per second).
func NewClient(cfg Config) *Client {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 60000
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search executes one query, blocking on the rate limiter first.
func (c *Client) Search(ctx context.Context, query string) (Answer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Answer{}, err
	}

	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Answer{}, fmt.Errorf("search error %d: %s", resp.StatusCode, string(errBody))
	}

	var answer Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return Answer{}, fmt.Errorf("failed to decode search response: %w", err)
	}
	return answer, nil
}
