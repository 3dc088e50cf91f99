package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook is a snapshot of resting bids and asks for one token. Bids are
// sorted descending by price, asks ascending.
type OrderBook struct {
	TokenID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	FetchedAt time.Time
}

// EmptyOrderBook returns a book with no levels. Fetchers return this after
// retry exhaustion; an empty book is not a fatal condition.
func EmptyOrderBook(tokenID string) OrderBook {
	return OrderBook{TokenID: tokenID}
}

// IsEmpty reports whether the book has no resting liquidity on either side.
func (b *OrderBook) IsEmpty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// BestBid returns the highest bid price, or 0 when there are no bids.
func (b *OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 when there are no asks.
func (b *OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// MidPrice returns the bid/ask midpoint, or 0 when either side is missing.
func (b *OrderBook) MidPrice() float64 {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (bid + ask) / 2
}

// VWAPBuy walks the ask side consuming up to notional USD and returns the
// volume-weighted average execution price together with the notional actually
// fillable. When the book cannot absorb the full notional the VWAP covers
// only the available depth and filled < notional.
func (b *OrderBook) VWAPBuy(notional float64) (vwap, filled float64) {
	if notional <= 0 || len(b.Asks) == 0 {
		return 0, 0
	}
	var spent, shares float64
	remaining := notional
	for _, lvl := range b.Asks {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		levelNotional := lvl.Price * lvl.Size
		take := levelNotional
		if take > remaining {
			take = remaining
		}
		spent += take
		shares += take / lvl.Price
		remaining -= take
		if remaining <= 0 {
			break
		}
	}
	if shares == 0 {
		return 0, 0
	}
	return spent / shares, spent
}

// AskDepthUSD sums ask-side notional within a price band above the best ask.
// band is an absolute price offset; a band of 0.05 on a 0.30 best ask counts
// all asks priced at or below 0.35.
func (b *OrderBook) AskDepthUSD(band float64) float64 {
	best := b.BestAsk()
	if best <= 0 {
		return 0
	}
	limit := best + band
	var depth float64
	for _, lvl := range b.Asks {
		if lvl.Price > limit {
			break
		}
		depth += lvl.Price * lvl.Size
	}
	return depth
}
