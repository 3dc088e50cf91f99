package domain

import "time"

// Market represents a binary prediction market with a YES/NO token pair.
// Prices are in [0,1] and read as implied probabilities.
type Market struct {
	ID          string
	ConditionID string
	YesTokenID  string
	NoTokenID   string

	Question    string
	Description string
	Rules       string // the event-level resolution rules text

	EventID    string
	EventTitle string
	Tags       []string

	// Catalog prices (mid). Book-derived fields are zero until an
	// orderbook has been fetched for the YES token.
	YesMid     float64
	NoMid      float64
	BestBidYes float64
	BestAskYes float64
	SpreadYes  float64

	LiquidityUSD float64
	VolumeUSD    float64

	EndTime   time.Time
	CreatedAt time.Time

	// NegRisk marks markets the venue flags as members of a mutually
	// exclusive outcome set.
	NegRisk bool

	// ResolutionSource is best-effort extracted from the rules text.
	ResolutionSource string
}

// EffectiveBuyYes is the price actually paid when buying one YES unit at
// market: best ask when a book is present, mid otherwise. Executable
// computations must use this, never the mid.
func (m *Market) EffectiveBuyYes() float64 {
	if m.BestAskYes > 0 {
		return m.BestAskYes
	}
	return m.YesMid
}

// EffectiveBuyNo is the price paid for one NO unit. On a well-formed book
// the NO ask equals 1 minus the YES best bid.
func (m *Market) EffectiveBuyNo() float64 {
	if m.BestBidYes > 0 {
		return 1 - m.BestBidYes
	}
	return m.NoMid
}

// EffectiveBuy returns the executable buy price for the given side.
func (m *Market) EffectiveBuy(side Side) float64 {
	if side == SideNo {
		return m.EffectiveBuyNo()
	}
	return m.EffectiveBuyYes()
}

// MidPrice returns the catalog mid for the given side.
func (m *Market) MidPrice(side Side) float64 {
	if side == SideNo {
		return m.NoMid
	}
	return m.YesMid
}

// Event groups markets sharing an event ID and carries the shared rules text.
type Event struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Markets     []string // market IDs in venue order
}

// TagInfo is a venue tag usable to bound a scan.
type TagInfo struct {
	ID    string
	Label string
	Slug  string
}
