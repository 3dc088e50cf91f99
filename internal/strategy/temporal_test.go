package strategy

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

func temporalGraph(yesShort, yesLong float64, cumulative bool) *graph.MarketGraph {
	question := func(month string) string {
		if cumulative {
			return "Will BTC hit $100k by " + month + "?"
		}
		return "Will BTC be above $100k on the last day of " + month + "?"
	}

	short := ladderMarket("btc-jan", yesShort)
	short.Question = question("January")
	long := ladderMarket("btc-feb", yesLong)
	long.Question = question("February")
	long.EndTime = scanDeadline.Add(31 * 24 * time.Hour)

	thresholds := []domain.ThresholdInfo{
		{MarketID: "btc-jan", Asset: "btc", Direction: domain.DirectionAbove, Level: 100_000, Deadline: short.EndTime},
		{MarketID: "btc-feb", Asset: "btc", Direction: domain.DirectionAbove, Level: 100_000, Deadline: long.EndTime},
	}
	return graph.NewBuilder([]domain.Market{short, long}, nil, scanNow).
		WithThresholds(thresholds).
		Build()
}

func TestTemporalNestedWindowViolation(t *testing.T) {
	// "by February" priced under "by January" violates cumulative
	// probability: hitting the level in January means hitting it by
	// February.
	g := temporalGraph(0.40, 0.30, true)

	s := NewTemporal(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, domain.StrategyTemporal, opp.Strategy)
	assert.Equal(t, "btc-feb", opp.Legs[0].MarketID, "buy the dominated long window YES")
	assert.Equal(t, domain.SideYes, opp.Legs[0].Side)
	assert.Equal(t, "btc-jan", opp.Legs[1].MarketID, "buy the short window NO")
	assert.Equal(t, domain.SideNo, opp.Legs[1].Side)
}

func TestTemporalOrderedWindowsNoCandidate(t *testing.T) {
	g := temporalGraph(0.30, 0.40, true)

	s := NewTemporal(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps, "long window correctly dominates")
}

func TestTemporalTerminalPriceQuestionsExcluded(t *testing.T) {
	// Terminal-price questions are not cumulative: "above on Jan 31" does
	// not imply "above on Feb 28". No pairing despite the price pattern.
	g := temporalGraph(0.40, 0.30, false)

	s := NewTemporal(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}
