package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

var testDeadline = time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC)

func parseQ(t *testing.T, question string) *domain.ThresholdInfo {
	t.Helper()
	m := domain.Market{ID: "m1", Question: question, EndTime: testDeadline}
	return ParseThreshold(&m)
}

func TestParseThresholdDirections(t *testing.T) {
	cases := []struct {
		question string
		asset    string
		dir      domain.ThresholdDirection
		level    float64
	}{
		{"Will Bitcoin be above $100,000 on December 31?", "btc", domain.DirectionAbove, 100_000},
		{"Will ETH go over $5k this year?", "eth", domain.DirectionAbove, 5_000},
		{"Solana greater than 300 by end of year?", "sol", domain.DirectionAbove, 300},
		{"Will BTC exceed $1.5m?", "btc", domain.DirectionAbove, 1_500_000},
		{"XRP surpasses $5?", "xrp", domain.DirectionAbove, 5},
		{"Will Dogecoin break $1 in 2026?", "doge", domain.DirectionAbove, 1},
		{"Will Bitcoin hit $150k by March?", "btc", domain.DirectionAbove, 150_000},
		{"Ethereum reaches $10,000?", "eth", domain.DirectionAbove, 10_000},
		{"Will BTC be below $80,000 on June 30?", "btc", domain.DirectionBelow, 80_000},
		{"Will Cardano trade under $0.25?", "ada", domain.DirectionBelow, 0.25},
		{"Litecoin less than $50 at year end?", "ltc", domain.DirectionBelow, 50},
		{"Will Avalanche drop below 20 by July?", "avax", domain.DirectionBelow, 20},
	}

	for _, tc := range cases {
		info := parseQ(t, tc.question)
		require.NotNil(t, info, "question %q should parse", tc.question)
		assert.Equal(t, tc.asset, info.Asset, tc.question)
		assert.Equal(t, tc.dir, info.Direction, tc.question)
		assert.Equal(t, tc.level, info.Level, tc.question)
		assert.Equal(t, testDeadline, info.Deadline, tc.question)
		assert.False(t, info.Touch, tc.question)
	}
}

func TestParseThresholdDigitIdioms(t *testing.T) {
	info := parseQ(t, "Will Solana hit triple digits by March?")
	require.NotNil(t, info)
	assert.Equal(t, domain.DirectionAbove, info.Direction)
	assert.Equal(t, 100.0, info.Level)

	info = parseQ(t, "Will XRP fall to single digits?")
	require.NotNil(t, info)
	assert.Equal(t, domain.DirectionBelow, info.Direction)
	assert.Equal(t, 10.0, info.Level)
}

func TestParseThresholdTouchFlag(t *testing.T) {
	info := parseQ(t, "Will Bitcoin dip to $70,000 before July?")
	require.NotNil(t, info)
	assert.Equal(t, domain.DirectionBelow, info.Direction)
	assert.Equal(t, 70_000.0, info.Level)
	assert.True(t, info.Touch, "dip-to questions are touch questions needing review")
}

func TestParseThresholdCompositePhraseNotAmbiguous(t *testing.T) {
	// "dip below" matches both the touch phrase and bare "below"; the
	// duplicate collapses instead of reading as ambiguous.
	info := parseQ(t, "Will BTC dip below $90k?")
	require.NotNil(t, info)
	assert.Equal(t, domain.DirectionBelow, info.Direction)
	assert.Equal(t, 90_000.0, info.Level)
}

// ambiguousCorpus holds questions that must NOT parse: conflicting
// directions, missing levels, missing assets, range phrasings, and missing
// deadline context.
var ambiguousCorpus = []string{
	"Will BTC be above $100k or below $80k?",
	"Will Bitcoin go up this year?",
	"Will Bitcoin moon?",
	"Will the price be above $50,000?",                  // no asset
	"Will above $100k happen?",                          // no asset
	"Something above 100 or under 50 for Ethereum",      // conflicting directions
	"Will BTC be between $90k and $100k?",               // interval, not threshold
	"Will ETH trade from 3000 to 3500?",                 // interval phrasing
	"BTC $80k-$100k range?",                             // dash interval
	"Will Bitcoin crash?",                               // no level
	"Will Solana flip Ethereum?",                        // no level
	"Will BTC double?",                                  // no numeric threshold
	"Bitcoin above?",                                    // level missing
	"Will gold and bitcoin both rise above $3000?",      // two assets
	"Will ETH be above 3k and below 5k?",                // conflicting directions
	"Is BTC volatile?",                                  // nothing to parse
	"Will Bitcoin dominance be above 60% or under 40%?", // conflicting
	"Will it reach $100k?",                              // no asset
	"Will BTC close higher?",                            // no level
	"Will XRP beat its record?",                         // no level
}

func TestParseThresholdAmbiguousCorpus(t *testing.T) {
	require.GreaterOrEqual(t, len(ambiguousCorpus), 20)
	parsedCount := 0
	for _, q := range ambiguousCorpus {
		if info := parseQ(t, q); info != nil {
			parsedCount++
			t.Logf("unexpectedly parsed %q as %+v", q, info)
		}
	}
	assert.Zero(t, parsedCount, "ambiguous questions must return no parse")
}

func TestParseThresholdMissingDeadline(t *testing.T) {
	m := domain.Market{ID: "m1", Question: "Will BTC be above $100k?"}
	assert.Nil(t, ParseThreshold(&m), "a market without a deadline cannot anchor a threshold")
}

func TestThresholdRenderRoundTrip(t *testing.T) {
	cases := []domain.ThresholdInfo{
		{Asset: "btc", Direction: domain.DirectionAbove, Level: 100_000, Unit: "$", Deadline: testDeadline},
		{Asset: "eth", Direction: domain.DirectionBelow, Level: 2_500.5, Unit: "$", Deadline: testDeadline},
		{Asset: "sol", Direction: domain.DirectionAbove, Level: 300, Unit: "", Deadline: testDeadline},
		{Asset: "doge", Direction: domain.DirectionBelow, Level: 0.25, Unit: "$", Deadline: testDeadline, Touch: true},
		{Asset: "link", Direction: domain.DirectionAbove, Level: 50, Unit: "%", Deadline: testDeadline},
	}

	for _, want := range cases {
		question := RenderThreshold(want)
		got := parseThresholdText(question, want.Deadline)
		require.NotNil(t, got, "rendered question %q should parse", question)
		assert.Equal(t, want.Asset, got.Asset, question)
		assert.Equal(t, want.Direction, got.Direction, question)
		assert.Equal(t, want.Level, got.Level, question)
		assert.Equal(t, want.Unit, got.Unit, question)
		assert.Equal(t, want.Deadline, got.Deadline, question)
		assert.Equal(t, want.Touch, got.Touch, question)
	}
}
