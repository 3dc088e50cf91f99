// Package feed maintains live order books over the venue WebSocket for the
// pre-flight auditor. A fresh streamed book saves a REST round trip at plan
// emission time; anything stale falls back to the REST fetcher.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// BookFeed subscribes to book updates for a set of tokens and serves the
// latest snapshot per token. It reconnects with a fixed delay on disconnect.
type BookFeed struct {
	wsURL       string
	fallback    domain.BookSource
	maxStaleAge time.Duration
	logger      *slog.Logger

	mu       sync.RWMutex
	books    map[string]domain.OrderBook
	assetIDs []string
}

// NewBookFeed creates a feed over the CLOB market channel. fallback serves
// tokens the feed has no fresh book for and is required.
func NewBookFeed(wsURL string, fallback domain.BookSource, maxStaleAge time.Duration, logger *slog.Logger) *BookFeed {
	if maxStaleAge <= 0 {
		maxStaleAge = 10 * time.Second
	}
	return &BookFeed{
		wsURL:       wsURL,
		fallback:    fallback,
		maxStaleAge: maxStaleAge,
		logger:      logger.With(slog.String("component", "book_feed")),
		books:       make(map[string]domain.OrderBook),
	}
}

// Subscribe sets the token set the feed tracks. Takes effect on the next
// (re)connect.
func (f *BookFeed) Subscribe(assetIDs []string) {
	f.mu.Lock()
	f.assetIDs = append([]string(nil), assetIDs...)
	f.mu.Unlock()
}

// Run connects and consumes book messages until ctx is cancelled.
func (f *BookFeed) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.runConnection(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn("book feed disconnected, reconnecting",
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// FetchOrderBook serves the latest streamed book when fresh enough,
// otherwise delegates to the REST fallback. Implements domain.BookSource.
func (f *BookFeed) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	f.mu.RLock()
	book, ok := f.books[tokenID]
	f.mu.RUnlock()

	if ok && time.Since(book.FetchedAt) <= f.maxStaleAge {
		return book, nil
	}
	return f.fallback.FetchOrderBook(ctx, tokenID)
}

// wsSubscribe is the subscription command for the market channel.
type wsSubscribe struct {
	Type     string   `json:"type"`
	Channel  string   `json:"channel"`
	AssetIDs []string `json:"assets_ids"`
}

// wsBook is a book snapshot frame.
type wsBook struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Bids      []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"bids"`
	Asks []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"asks"`
}

func (f *BookFeed) runConnection(ctx context.Context) error {
	f.mu.RLock()
	assets := append([]string(nil), f.assetIDs...)
	f.mu.RUnlock()
	if len(assets) == 0 {
		// Nothing to track yet; idle until cancelled or resubscribed.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL+"/market", nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsSubscribe{Type: "subscribe", Channel: "market", AssetIDs: assets}); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleFrame(raw)
	}
}

// handleFrame decodes book frames and updates the latest-book table. Frames
// may arrive as a single object or a batch array; other event types are
// ignored.
func (f *BookFeed) handleFrame(raw []byte) {
	var batch []wsBook
	if err := json.Unmarshal(raw, &batch); err != nil {
		var single wsBook
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		batch = []wsBook{single}
	}

	now := time.Now().UTC()
	for _, msg := range batch {
		if msg.EventType != "book" || msg.AssetID == "" {
			continue
		}
		book := domain.OrderBook{TokenID: msg.AssetID, FetchedAt: now}
		for _, lvl := range msg.Bids {
			if p, s, ok := parseLevel(lvl.Price, lvl.Size); ok {
				book.Bids = append(book.Bids, domain.PriceLevel{Price: p, Size: s})
			}
		}
		for _, lvl := range msg.Asks {
			if p, s, ok := parseLevel(lvl.Price, lvl.Size); ok {
				book.Asks = append(book.Asks, domain.PriceLevel{Price: p, Size: s})
			}
		}
		sortBook(&book)

		f.mu.Lock()
		f.books[msg.AssetID] = book
		f.mu.Unlock()
	}
}

func parseLevel(price, size string) (float64, float64, bool) {
	p, errP := strconv.ParseFloat(price, 64)
	s, errS := strconv.ParseFloat(size, 64)
	if errP != nil || errS != nil || p <= 0 || s <= 0 {
		return 0, 0, false
	}
	return p, s, true
}

// sortBook orders bids descending and asks ascending.
func sortBook(b *domain.OrderBook) {
	for i := 1; i < len(b.Bids); i++ {
		for j := i; j > 0 && b.Bids[j].Price > b.Bids[j-1].Price; j-- {
			b.Bids[j], b.Bids[j-1] = b.Bids[j-1], b.Bids[j]
		}
	}
	for i := 1; i < len(b.Asks); i++ {
		for j := i; j > 0 && b.Asks[j].Price < b.Asks[j-1].Price; j-- {
			b.Asks[j], b.Asks[j-1] = b.Asks[j-1], b.Asks[j]
		}
	}
}

// Compile-time interface check.
var _ domain.BookSource = (*BookFeed)(nil)
