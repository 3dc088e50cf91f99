package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB API. The scanner only
// reads order books; order placement is a downstream concern.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    Limiter
	maxRetries int
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, timeout time.Duration, limiter Limiter, maxRetries int) *ClobClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		maxRetries: maxRetries,
	}
}

// FetchOrderBook returns the current book for a token. Transient failures are
// retried with backoff; after exhaustion an empty book is returned rather
// than an error, since a missing book degrades a plan but does not abort a
// scan.
func (c *ClobClient) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)
	path := "/book?" + params.Encode()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return domain.EmptyOrderBook(tokenID), err
			}
		}

		book, err := c.fetchOnce(ctx, path, tokenID)
		if err == nil {
			return book, nil
		}
		if ctx.Err() != nil {
			return domain.EmptyOrderBook(tokenID), ctx.Err()
		}
		if !isTransient(err) {
			break
		}
	}
	return domain.EmptyOrderBook(tokenID), nil
}

func (c *ClobClient) fetchOnce(ctx context.Context, path, tokenID string) (domain.OrderBook, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.OrderBook{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return domain.OrderBook{}, err
	}

	var apiBook APIBook
	if err := json.Unmarshal(body, &apiBook); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: decode book: %w: %v", domain.ErrSourceFormat, err)
	}
	return apiBook.ToDomainBook(tokenID, time.Now().UTC()), nil
}

// Compile-time interface check.
var _ domain.BookSource = (*ClobClient)(nil)
