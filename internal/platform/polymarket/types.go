package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a string-encoded number; the
// Gamma API sends volume and liquidity as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Several array-valued fields arrive as JSON-encoded strings.
type APIMarket struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	ConditionID      string    `json:"conditionId"`
	Slug             string    `json:"slug"`
	Active           flexBool  `json:"active"`
	Closed           bool      `json:"closed"`
	Description      string    `json:"description"`
	Outcomes         string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices    string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs     string    `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume           flexFloat `json:"volume"`
	Liquidity        flexFloat `json:"liquidity"`
	EndDate          string    `json:"endDate"`
	CreatedAt        string    `json:"createdAt"`
	EventSlug        string    `json:"eventSlug"`
	GroupItemTitle   string    `json:"groupItemTitle"`
	ResolutionSource string    `json:"resolutionSource"`
	BestBid          flexFloat `json:"bestBid"`
	BestAsk          flexFloat `json:"bestAsk"`
	Spread           flexFloat `json:"spread"`
	NegRisk          bool      `json:"negRisk"`
}

// APIEvent represents an event as returned by the Gamma API. An event groups
// one or more related markets and carries the authoritative rules text.
type APIEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Active      flexBool    `json:"active"`
	Closed      bool        `json:"closed"`
	Tags        []APITag    `json:"tags"`
	Markets     []APIMarket `json:"markets"`
}

// APITag is a venue tag entry.
type APITag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// APIBook is the CLOB order book response for one token.
type APIBook struct {
	Market  string         `json:"market"`
	AssetID string         `json:"asset_id"`
	Bids    []APIBookLevel `json:"bids"`
	Asks    []APIBookLevel `json:"asks"`
}

// APIBookLevel is a single price level; price and size arrive as strings.
type APIBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --------------------------------------------------------------------------
// Conversion helpers: API types -> domain types
// --------------------------------------------------------------------------

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. The event
// fields are filled by the caller when the market arrived inside an event
// payload.
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	dm := domain.Market{
		ID:               m.ID,
		ConditionID:      m.ConditionID,
		Question:         m.Question,
		Description:      m.Description,
		VolumeUSD:        float64(m.Volume),
		LiquidityUSD:     float64(m.Liquidity),
		BestBidYes:       float64(m.BestBid),
		BestAskYes:       float64(m.BestAsk),
		SpreadYes:        float64(m.Spread),
		NegRisk:          m.NegRisk,
		ResolutionSource: m.ResolutionSource,
	}

	prices, err := decodeStringArray(m.OutcomePrices)
	if err != nil {
		return domain.Market{}, err
	}
	if len(prices) >= 2 {
		dm.YesMid, _ = strconv.ParseFloat(prices[0], 64)
		dm.NoMid, _ = strconv.ParseFloat(prices[1], 64)
	}

	tokens, err := decodeStringArray(m.ClobTokenIDs)
	if err != nil {
		return domain.Market{}, err
	}
	if len(tokens) >= 2 {
		dm.YesTokenID = tokens[0]
		dm.NoTokenID = tokens[1]
	}

	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			dm.EndTime = t.UTC()
		}
	}
	if m.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
			dm.CreatedAt = t.UTC()
		}
	}

	return dm, nil
}

// ToDomainEvent converts an APIEvent and links its markets.
func (e *APIEvent) ToDomainEvent() domain.Event {
	ev := domain.Event{
		ID:          e.ID,
		Title:       e.Title,
		Slug:        e.Slug,
		Description: e.Description,
	}
	for i := range e.Markets {
		ev.Markets = append(ev.Markets, e.Markets[i].ID)
	}
	return ev
}

// ToDomainBook converts an APIBook, sorting bids descending and asks
// ascending as the domain type requires.
func (b *APIBook) ToDomainBook(tokenID string, fetchedAt time.Time) domain.OrderBook {
	book := domain.OrderBook{TokenID: tokenID, FetchedAt: fetchedAt}
	for _, lvl := range b.Bids {
		p, errP := strconv.ParseFloat(lvl.Price, 64)
		s, errS := strconv.ParseFloat(lvl.Size, 64)
		if errP != nil || errS != nil || p <= 0 || s <= 0 {
			continue
		}
		book.Bids = append(book.Bids, domain.PriceLevel{Price: p, Size: s})
	}
	for _, lvl := range b.Asks {
		p, errP := strconv.ParseFloat(lvl.Price, 64)
		s, errS := strconv.ParseFloat(lvl.Size, 64)
		if errP != nil || errS != nil || p <= 0 || s <= 0 {
			continue
		}
		book.Asks = append(book.Asks, domain.PriceLevel{Price: p, Size: s})
	}
	sortLevels(book.Bids, false)
	sortLevels(book.Asks, true)
	return book
}

func sortLevels(levels []domain.PriceLevel, ascending bool) {
	// Books are small; insertion sort keeps this allocation-free.
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0; j-- {
			swap := levels[j].Price < levels[j-1].Price
			if !ascending {
				swap = levels[j].Price > levels[j-1].Price
			}
			if !swap {
				break
			}
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

// decodeStringArray decodes a JSON array embedded as a string, e.g.
// "[\"0.5\",\"0.5\"]". An empty input decodes to nil.
func decodeStringArray(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
