package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/platform/polymarket"
)

// eventPayload builds one Gamma event with n nested markets carrying the
// venue's string-encoded fields.
func eventPayload(eventID string, n int) map[string]any {
	markets := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		markets = append(markets, map[string]any{
			"id":            fmt.Sprintf("%s-m%d", eventID, i),
			"question":      fmt.Sprintf("Will SOL be above $%d on December 31?", 100+10*i),
			"conditionId":   fmt.Sprintf("cond-%s-%d", eventID, i),
			"outcomes":      `["Yes","No"]`,
			"outcomePrices": `["0.30","0.70"]`,
			"clobTokenIds":  fmt.Sprintf(`["%s-m%d-yes","%s-m%d-no"]`, eventID, i, eventID, i),
			"volume":        "120000",
			"liquidity":     "50000",
			"endDate":       time.Now().UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339),
			"active":        "true",
		})
	}
	return map[string]any{
		"id":          eventID,
		"title":       "Event " + eventID,
		"description": "Resolves via Coinbase closing price.",
		"active":      true,
		"markets":     markets,
	}
}

// gammaServer serves /events with pagination over the given events.
func gammaServer(t *testing.T, events []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		end := offset + limit
		if offset > len(events) {
			offset = len(events)
		}
		if end > len(events) {
			end = len(events)
		}
		_ = json.NewEncoder(w).Encode(events[offset:end])
	}))
}

func newTestSource(t *testing.T, baseURL string, cfg Config, cache domain.SnapshotCache) *Source {
	t.Helper()
	gamma := polymarket.NewGammaClient(baseURL, 5*time.Second, nil, 2)
	clob := polymarket.NewClobClient(baseURL, 5*time.Second, nil, 2)
	return New(gamma, clob, cache, cfg, slog.Default())
}

func TestListMarketsPaginates(t *testing.T) {
	events := []map[string]any{
		eventPayload("ev1", 2),
		eventPayload("ev2", 1),
		eventPayload("ev3", 1),
	}
	srv := gammaServer(t, events)
	defer srv.Close()

	src := newTestSource(t, srv.URL, Config{Tags: []string{"crypto"}, PageSize: 2, NSource: 2}, nil)
	snap, err := src.ListMarkets(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Markets, 4)
	assert.Len(t, snap.Events, 3)
	assert.False(t, snap.FromCache)

	m := snap.Markets[0]
	assert.Equal(t, "ev1", m.EventID)
	assert.Equal(t, 0.30, m.YesMid, "string-encoded prices decode")
	assert.Equal(t, 0.70, m.NoMid)
	assert.Equal(t, "ev1-m0-yes", m.YesTokenID)
	assert.Equal(t, 50_000.0, m.LiquidityUSD)
	assert.Equal(t, "Resolves via Coinbase closing price.", m.Rules, "event rules propagate to markets")
}

func TestListMarketsSkipsMalformedRecord(t *testing.T) {
	bad := eventPayload("ev1", 2)
	bad["markets"].([]map[string]any)[0]["outcomePrices"] = `not-json`
	srv := gammaServer(t, []map[string]any{bad})
	defer srv.Close()

	src := newTestSource(t, srv.URL, Config{Tags: []string{"crypto"}, PageSize: 10, NSource: 1}, nil)
	snap, err := src.ListMarkets(context.Background())
	require.NoError(t, err, "a malformed record is a warning, not a scan failure")

	assert.Len(t, snap.Markets, 1)
	require.Len(t, snap.Warnings, 1)
	assert.Contains(t, snap.Warnings[0], "ev1-m0")
}

func TestListMarketsPerTagCap(t *testing.T) {
	events := []map[string]any{
		eventPayload("ev1", 3),
		eventPayload("ev2", 3),
	}
	srv := gammaServer(t, events)
	defer srv.Close()

	src := newTestSource(t, srv.URL, Config{
		Tags: []string{"crypto"}, PageSize: 1, NSource: 1, FetchMaxPerTag: 4,
	}, nil)
	snap, err := src.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Markets, 4, "per-tag cap bounds the fetch")

	// enable_full_fetch overrides the cap.
	src = newTestSource(t, srv.URL, Config{
		Tags: []string{"crypto"}, PageSize: 1, NSource: 1,
		FetchMaxPerTag: 4, EnableFullFetch: true,
	}, nil)
	snap, err = src.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Markets, 6, "full fetch ignores the per-tag cap")
}

// memCache is an in-memory SnapshotCache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]domain.Market
}

func (c *memCache) GetSnapshot(_ context.Context, key string) ([]domain.Market, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.data[key]
	return m, ok, nil
}

func (c *memCache) PutSnapshot(_ context.Context, key string, markets []domain.Market, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]domain.Market)
	}
	c.data[key] = markets
	return nil
}

func TestListMarketsServedFromCache(t *testing.T) {
	srv := gammaServer(t, []map[string]any{eventPayload("ev1", 2)})
	defer srv.Close()

	cache := &memCache{}
	cfg := Config{Tags: []string{"crypto"}, PageSize: 10, NSource: 1, CacheTTL: time.Minute}

	src := newTestSource(t, srv.URL, cfg, cache)
	first, err := src.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	srv.Close() // a cache hit must not touch the network

	second, err := src.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, len(first.Markets), len(second.Markets))
}

func TestCacheKeyIncludesTagSet(t *testing.T) {
	gamma := polymarket.NewGammaClient("http://x", time.Second, nil, 1)
	a := New(gamma, nil, nil, Config{Tags: []string{"crypto", "politics"}, Active: true}, slog.Default())
	b := New(gamma, nil, nil, Config{Tags: []string{"politics", "crypto"}, Active: true}, slog.Default())
	c := New(gamma, nil, nil, Config{Tags: []string{"crypto"}, Active: true}, slog.Default())

	assert.Equal(t, a.CacheKey(), b.CacheKey(), "tag order does not change the key")
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}
