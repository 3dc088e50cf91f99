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

var (
	scanNow      = time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	scanDeadline = scanNow.Add(30 * 24 * time.Hour)
)

// ladderMarket builds a threshold market with a book one cent around the
// mid.
func ladderMarket(id string, yesMid float64) domain.Market {
	return domain.Market{
		ID:               id,
		Question:         "threshold",
		YesMid:           yesMid,
		NoMid:            1 - yesMid,
		BestBidYes:       yesMid - 0.01,
		BestAskYes:       yesMid + 0.01,
		LiquidityUSD:     50_000,
		EndTime:          scanDeadline,
		ResolutionSource: "coinbase",
	}
}

func ladderGraph(yesLow, yesHigh float64) *graph.MarketGraph {
	low := ladderMarket("sol-110", yesLow)
	high := ladderMarket("sol-120", yesHigh)
	thresholds := []domain.ThresholdInfo{
		{MarketID: "sol-110", Asset: "sol", Direction: domain.DirectionAbove, Level: 110, Deadline: scanDeadline},
		{MarketID: "sol-120", Asset: "sol", Direction: domain.DirectionAbove, Level: 120, Deadline: scanDeadline},
	}
	return graph.NewBuilder([]domain.Market{low, high}, nil, scanNow).
		WithThresholds(thresholds).
		Build()
}

func TestMonotonicityEmitsOnInversion(t *testing.T) {
	// SOL ABOVE 110 at 0.30, ABOVE 120 at 0.31: the higher threshold is
	// dearer, violating monotonicity.
	g := ladderGraph(0.30, 0.31)
	s := NewMonotonicity(DefaultParams(), slog.Default())

	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, domain.StrategyMonotonicity, opp.Strategy)
	require.Len(t, opp.Legs, 2)
	assert.Equal(t, domain.Leg{MarketID: "sol-110", Side: domain.SideYes, BuyPrice: 0.31}, opp.Legs[0])
	assert.InDelta(t, 0.70, opp.Legs[1].BuyPrice, 1e-9, "NO leg pays 1 minus the YES bid")
	assert.Equal(t, domain.SideNo, opp.Legs[1].Side)
	assert.Equal(t, "sol-120", opp.Legs[1].MarketID)

	assert.Equal(t, 1.0, opp.GuaranteedReturn)
	assert.InDelta(t, 1.01, opp.Cost, 1e-9, "cost above return; Layer 3 will reject this one")
	assert.InDelta(t, 30, opp.DaysToResolution, 0.01)
}

func TestMonotonicityProfitableInversion(t *testing.T) {
	// Wider inversion: yes(110)=0.30, yes(120)=0.40.
	g := ladderGraph(0.30, 0.40)
	s := NewMonotonicity(DefaultParams(), slog.Default())

	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.InDelta(t, 0.31+0.61, opp.Cost, 1e-9)
	assert.Greater(t, opp.EffectiveProfit, 0.0)
}

func TestMonotonicityNoViolationNoCandidate(t *testing.T) {
	// Correctly ordered ladder: yes(110)=0.31 > yes(120)=0.30.
	g := ladderGraph(0.31, 0.30)
	s := NewMonotonicity(DefaultParams(), slog.Default())

	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestMonotonicityToleranceSuppressesNoise(t *testing.T) {
	// Inversion of exactly one cent does not clear a raised two-cent
	// tolerance (at the default one cent it emits, see above).
	g := ladderGraph(0.30, 0.31)
	params := DefaultParams()
	params.MonoTolerance = 0.02
	s := NewMonotonicity(params, slog.Default())

	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestMonotonicityBelowLadder(t *testing.T) {
	// BELOW direction: P(X < 80) must not exceed P(X < 90).
	low := ladderMarket("btc-below-80", 0.40)
	high := ladderMarket("btc-below-90", 0.25)
	thresholds := []domain.ThresholdInfo{
		{MarketID: "btc-below-80", Asset: "btc", Direction: domain.DirectionBelow, Level: 80_000, Deadline: scanDeadline},
		{MarketID: "btc-below-90", Asset: "btc", Direction: domain.DirectionBelow, Level: 90_000, Deadline: scanDeadline},
	}
	g := graph.NewBuilder([]domain.Market{low, high}, nil, scanNow).
		WithThresholds(thresholds).
		Build()

	s := NewMonotonicity(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	// Buy the dominating high-level YES and the low-level NO.
	assert.Equal(t, "btc-below-90", opps[0].Legs[0].MarketID)
	assert.Equal(t, domain.SideYes, opps[0].Legs[0].Side)
	assert.Equal(t, "btc-below-80", opps[0].Legs[1].MarketID)
	assert.Equal(t, domain.SideNo, opps[0].Legs[1].Side)
}

func TestMonotonicityDeadlineGroupingTolerance(t *testing.T) {
	// Deadlines 12h apart group under the default 24h tolerance; 3 days
	// apart they do not.
	mkThreshold := func(id string, level float64, deadline time.Time) domain.ThresholdInfo {
		return domain.ThresholdInfo{
			MarketID: id, Asset: "sol",
			Direction: domain.DirectionAbove, Level: level, Deadline: deadline,
		}
	}
	low := ladderMarket("a", 0.30)
	high := ladderMarket("b", 0.40)

	near := graph.NewBuilder([]domain.Market{low, high}, nil, scanNow).
		WithThresholds([]domain.ThresholdInfo{
			mkThreshold("a", 110, scanDeadline),
			mkThreshold("b", 120, scanDeadline.Add(12*time.Hour)),
		}).Build()
	far := graph.NewBuilder([]domain.Market{low, high}, nil, scanNow).
		WithThresholds([]domain.ThresholdInfo{
			mkThreshold("a", 110, scanDeadline),
			mkThreshold("b", 120, scanDeadline.Add(72*time.Hour)),
		}).Build()

	s := NewMonotonicity(DefaultParams(), slog.Default())

	opps, err := s.Scan(context.Background(), near)
	require.NoError(t, err)
	assert.Len(t, opps, 1, "12h apart is the same ladder")

	opps, err = s.Scan(context.Background(), far)
	require.NoError(t, err)
	assert.Empty(t, opps, "72h apart is not the same ladder")
}
