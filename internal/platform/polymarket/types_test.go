package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawGammaMarket mirrors the venue's habit of string-encoding numerics and
// embedding arrays as JSON strings.
const rawGammaMarket = `{
	"id": "512345",
	"question": "Will Bitcoin be above $100,000 on December 31?",
	"conditionId": "0xabc",
	"active": "true",
	"closed": false,
	"outcomes": "[\"Yes\",\"No\"]",
	"outcomePrices": "[\"0.62\",\"0.38\"]",
	"clobTokenIds": "[\"111\",\"222\"]",
	"volume": "1250000.5",
	"liquidity": "84000",
	"bestBid": 0.61,
	"bestAsk": "0.63",
	"endDate": "2026-12-31T12:00:00Z",
	"negRisk": true,
	"resolutionSource": "Coinbase"
}`

func TestAPIMarketDecodeAndConvert(t *testing.T) {
	var am APIMarket
	require.NoError(t, json.Unmarshal([]byte(rawGammaMarket), &am))

	assert.True(t, bool(am.Active), "string-encoded bool decodes")
	assert.Equal(t, 1_250_000.5, float64(am.Volume), "string-encoded number decodes")
	assert.Equal(t, 0.61, float64(am.BestBid), "plain number decodes too")
	assert.Equal(t, 0.63, float64(am.BestAsk))

	m, err := am.ToDomainMarket()
	require.NoError(t, err)
	assert.Equal(t, "512345", m.ID)
	assert.Equal(t, 0.62, m.YesMid)
	assert.Equal(t, 0.38, m.NoMid)
	assert.Equal(t, "111", m.YesTokenID)
	assert.Equal(t, "222", m.NoTokenID)
	assert.Equal(t, 84_000.0, m.LiquidityUSD)
	assert.True(t, m.NegRisk)
	assert.Equal(t, time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC), m.EndTime)
}

func TestAPIMarketMalformedEmbeddedArray(t *testing.T) {
	am := APIMarket{ID: "1", OutcomePrices: "not json"}
	_, err := am.ToDomainMarket()
	assert.Error(t, err)
}

func TestAPIBookToDomainSortsLevels(t *testing.T) {
	book := APIBook{
		Bids: []APIBookLevel{
			{Price: "0.28", Size: "100"},
			{Price: "0.30", Size: "50"},
			{Price: "bogus", Size: "10"},
		},
		Asks: []APIBookLevel{
			{Price: "0.35", Size: "80"},
			{Price: "0.32", Size: "40"},
		},
	}

	b := book.ToDomainBook("tok", time.Now())
	require.Len(t, b.Bids, 2, "unparseable level dropped")
	assert.Equal(t, 0.30, b.Bids[0].Price, "bids sorted descending")
	require.Len(t, b.Asks, 2)
	assert.Equal(t, 0.32, b.Asks[0].Price, "asks sorted ascending")
	assert.Equal(t, 0.32, b.BestAsk())
	assert.Equal(t, 0.30, b.BestBid())
}
