package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Limiter gates outbound requests. All venue clients share one process-wide
// token bucket.
type Limiter interface {
	Wait(ctx context.Context) error
}

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery, metadata, and events.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    Limiter
	maxRetries int
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// limiter may be nil, in which case requests are not throttled.
func NewGammaClient(baseURL string, timeout time.Duration, limiter Limiter, maxRetries int) *GammaClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		maxRetries: maxRetries,
	}
}

// GetMarketsPage returns one page of markets, optionally bounded to a tag.
// Transient failures are retried with exponential backoff and full jitter;
// after exhaustion the error wraps domain.ErrSourceUnavailable. A page that
// cannot be decoded wraps domain.ErrSourceFormat.
func (g *GammaClient) GetMarketsPage(ctx context.Context, tagID string, active bool, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if active {
		params.Set("active", "true")
		params.Set("closed", "false")
	}
	if tagID != "" {
		params.Set("tag_id", tagID)
	}

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w: %v", domain.ErrSourceFormat, err)
	}
	return apiMarkets, nil
}

// GetEventsPage returns one page of events with their nested markets and the
// authoritative rules description.
func (g *GammaClient) GetEventsPage(ctx context.Context, tagSlug string, limit, offset int) ([]APIEvent, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if tagSlug != "" {
		params.Set("tag", tagSlug)
	}

	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events: %w", err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w: %v", domain.ErrSourceFormat, err)
	}
	return events, nil
}

// GetTags returns the venue's tag catalog.
func (g *GammaClient) GetTags(ctx context.Context) ([]domain.TagInfo, error) {
	body, err := g.doGet(ctx, "/tags?limit=500")
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get tags: %w", err)
	}

	var apiTags []APITag
	if err := json.Unmarshal(body, &apiTags); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode tags: %w: %v", domain.ErrSourceFormat, err)
	}

	tags := make([]domain.TagInfo, 0, len(apiTags))
	for _, t := range apiTags {
		tags = append(tags, domain.TagInfo{ID: t.ID, Label: t.Label, Slug: t.Slug})
	}
	return tags, nil
}

// doGet sends a GET request with rate limiting and retry. Only transient
// failures (network errors, 5xx, 429) are retried.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		body, err := g.doGetOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, lastErr)
}

func (g *GammaClient) doGetOnce(ctx context.Context, path string) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps HTTP status classes onto domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrSourceUnavailable, statusCode, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// isTransient classifies errors worth retrying: network-level failures,
// rate limits, and server errors.
func isTransient(err error) bool {
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrSourceUnavailable) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Per-request timeouts count as transient; caller-level
		// cancellation is surfaced by the backoff sleep instead.
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return true
	}
	// Plain transport errors come back as wrapped *url.Error.
	return errors.Is(err, io.ErrUnexpectedEOF) || isWrappedTransport(err)
}

func isWrappedTransport(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr)
}
