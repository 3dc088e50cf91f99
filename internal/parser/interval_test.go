package parser

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

func parseIV(t *testing.T, question string) *domain.IntervalInfo {
	t.Helper()
	m := domain.Market{ID: "m1", Question: question, EndTime: testDeadline}
	return ParseInterval(&m)
}

func TestParseIntervalBetween(t *testing.T) {
	info := parseIV(t, "Will Bitcoin close between $90,000 and $100,000 in December?")
	require.NotNil(t, info)
	assert.Equal(t, "btc", info.Asset)
	assert.Equal(t, 90_000.0, info.Lower)
	assert.Equal(t, 100_000.0, info.Upper)
	assert.True(t, info.LowerInclusive)
	assert.True(t, info.UpperInclusive)
}

func TestParseIntervalDash(t *testing.T) {
	info := parseIV(t, "Will ETH end the year in the 3,000-3,499 range?")
	require.NotNil(t, info)
	assert.Equal(t, 3_000.0, info.Lower)
	assert.Equal(t, 3_499.0, info.Upper)
	assert.True(t, info.LowerInclusive)
	assert.True(t, info.UpperInclusive)
}

func TestParseIntervalBrackets(t *testing.T) {
	info := parseIV(t, "Will Solana settle in (100, 150] by March?")
	require.NotNil(t, info)
	assert.Equal(t, 100.0, info.Lower)
	assert.Equal(t, 150.0, info.Upper)
	assert.False(t, info.LowerInclusive, "open paren excludes the bound")
	assert.True(t, info.UpperInclusive, "closing bracket includes the bound")
}

func TestParseIntervalOpenEnded(t *testing.T) {
	info := parseIV(t, "Will Bitcoin finish at $150,000 or more?")
	require.NotNil(t, info)
	assert.Equal(t, 150_000.0, info.Lower)
	assert.True(t, math.IsInf(info.Upper, 1))
	assert.True(t, info.LowerInclusive)

	info = parseIV(t, "Will ETH finish at 2,000 or below?")
	require.NotNil(t, info)
	assert.True(t, math.IsInf(info.Lower, -1))
	assert.Equal(t, 2_000.0, info.Upper)
	assert.True(t, info.UpperInclusive)
}

func TestParseIntervalAmbiguous(t *testing.T) {
	for _, q := range []string{
		"Will Bitcoin trade in a range?",          // no bounds
		"Will ETH be between 5000 and 3000?",      // inverted bounds
		"Will the price land between 10 and 20?",  // no asset
		"Will BTC be above $100k?",                // threshold, not interval
		"Will gold or bitcoin stay between 1-2k?", // two assets
	} {
		assert.Nil(t, parseIV(t, q), "question %q should not parse as interval", q)
	}
}

func TestParseIntervalMissingDeadline(t *testing.T) {
	m := domain.Market{ID: "m1", Question: "Will BTC close between $90k and $100k?"}
	assert.Nil(t, ParseInterval(&m))
}

// TestAdjacentIntervalsPartition covers the boundary semantics: adjacent
// buckets must hand the shared point to exactly one side, or step by one on
// integer ladders.
func TestAdjacentIntervalsPartition(t *testing.T) {
	deadline := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	mk := func(lower, upper float64, loInc, upInc bool) domain.IntervalInfo {
		return domain.IntervalInfo{
			Asset: "btc", Lower: lower, Upper: upper,
			LowerInclusive: loInc, UpperInclusive: upInc, Deadline: deadline,
		}
	}

	halfOpen := mk(90_000, 100_000, true, false)
	closedNext := mk(100_000, 110_000, true, true)
	assert.True(t, AdjacentIntervals(&halfOpen, &closedNext),
		"[90k,100k) followed by [100k,110k] partitions the boundary")

	bothClosed := mk(90_000, 100_000, true, true)
	assert.False(t, AdjacentIntervals(&bothClosed, &closedNext),
		"both sides owning 100k would double-pay, not partition")

	bucketA := mk(3_000, 3_499, true, true)
	bucketB := mk(3_500, 3_999, true, true)
	assert.True(t, AdjacentIntervals(&bucketA, &bucketB),
		"integer bucket ladders step by one and still partition")

	gapped := mk(3_000, 3_400, true, true)
	assert.False(t, AdjacentIntervals(&gapped, &bucketB), "a gap breaks the cover")
}
