package strategy

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// exhaustiveGraph builds one event of four mutually exclusive outcomes with
// best asks half a cent over the mid.
func exhaustiveGraph(mids []float64, az graph.PairAnalyzer) *graph.MarketGraph {
	markets := make([]domain.Market, len(mids))
	ids := make([]string, len(mids))
	for i, mid := range mids {
		id := string(rune('a' + i))
		ids[i] = id
		markets[i] = domain.Market{
			ID:               id,
			EventID:          "ev1",
			EventTitle:       "Who wins?",
			Question:         "outcome " + id,
			YesMid:           mid,
			NoMid:            1 - mid,
			BestBidYes:       mid - 0.005,
			BestAskYes:       mid + 0.005,
			LiquidityUSD:     50_000,
			EndTime:          scanDeadline,
			NegRisk:          true,
			ResolutionSource: "associated press",
		}
	}
	events := map[string]domain.Event{
		"ev1": {ID: "ev1", Title: "Who wins?", Markets: ids},
	}
	b := graph.NewBuilder(markets, events, scanNow)
	if az != nil {
		b.WithAnalyzer(az)
	}
	return b.Build()
}

func TestExhaustiveEmitsWhenSetVerified(t *testing.T) {
	az := &stubAnalyzer{verification: domain.ExhaustiveVerification{
		IsComplete: true,
		Confidence: 0.95,
	}}
	g := exhaustiveGraph([]float64{0.18, 0.12, 0.05, 0.58}, az)

	s := NewExhaustive(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, domain.StrategyExhaustive, opp.Strategy)
	require.Len(t, opp.Legs, 4)
	for _, leg := range opp.Legs {
		assert.Equal(t, domain.SideYes, leg.Side, "complete set buys every YES")
	}
	assert.InDelta(t, 0.95, opp.Cost, 1e-9, "sum of mids 0.93 plus four half-cent asks")
	assert.Equal(t, 1.0, opp.GuaranteedReturn)
	require.NotNil(t, opp.Relationship)
	assert.Equal(t, domain.RelationExhaustive, opp.Relationship.Relation)
}

func TestExhaustiveIncompleteSetSkipped(t *testing.T) {
	az := &stubAnalyzer{verification: domain.ExhaustiveVerification{
		IsComplete:   false,
		Confidence:   0.9,
		MissingCases: []string{"a tie"},
	}}
	g := exhaustiveGraph([]float64{0.18, 0.12, 0.05, 0.58}, az)

	s := NewExhaustive(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps, "an incomplete set has an uncovered outcome")
}

func TestExhaustiveLowConfidenceSkipped(t *testing.T) {
	az := &stubAnalyzer{verification: domain.ExhaustiveVerification{
		IsComplete: true,
		Confidence: 0.60,
	}}
	g := exhaustiveGraph([]float64{0.18, 0.12, 0.05, 0.58}, az)

	s := NewExhaustive(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestExhaustivePriceSumAtParitySkipped(t *testing.T) {
	az := &stubAnalyzer{verification: domain.ExhaustiveVerification{
		IsComplete: true,
		Confidence: 0.95,
	}}
	// Mids sum to 0.99; with asks the cost clears 1 and no edge remains.
	g := exhaustiveGraph([]float64{0.25, 0.25, 0.25, 0.24}, az)

	s := NewExhaustive(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestExhaustiveVenueFlagWithoutAnalyzer(t *testing.T) {
	// Without an LLM the venue's mutually-exclusive flag alone qualifies.
	g := exhaustiveGraph([]float64{0.18, 0.12, 0.05, 0.58}, nil)

	s := NewExhaustive(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, 1.0, opps[0].Relationship.Confidence)
}
