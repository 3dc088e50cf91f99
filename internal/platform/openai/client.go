// Package openai is a minimal client for OpenAI-compatible chat-completion
// and embedding endpoints. Any provider exposing the same wire shapes works
// by pointing BaseURL elsewhere.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Limiter gates outbound requests; shared with the venue clients.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Client talks to one OpenAI-compatible API root.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    Limiter
}

// NewClient creates a client for the given API root (e.g.
// "https://api.openai.com/v1").
func NewClient(baseURL, apiKey string, timeout time.Duration, limiter Limiter) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(body))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
