package strategy

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/cluster"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// stubAnalyzer returns a fixed verdict for every pair.
type stubAnalyzer struct {
	analysis     domain.RelationshipAnalysis
	err          error
	verification domain.ExhaustiveVerification
}

func (s *stubAnalyzer) AnalyzePair(_ context.Context, _, _ *domain.Market) (domain.RelationshipAnalysis, error) {
	return s.analysis, s.err
}

func (s *stubAnalyzer) VerifyExhaustiveSet(_ context.Context, _ []domain.Market) (domain.ExhaustiveVerification, error) {
	return s.verification, s.err
}

// implicationGraph builds two BTC threshold markets in one cluster:
// A = above $110k (yes 0.10), B = above $100k (yes configurable).
func implicationGraph(yesB float64, az graph.PairAnalyzer) *graph.MarketGraph {
	a := ladderMarket("btc-110k", 0.10)
	a.Question = "Will BTC be above $110k?"
	b := ladderMarket("btc-100k", yesB)
	b.Question = "Will BTC be above $100k?"

	thresholds := []domain.ThresholdInfo{
		{MarketID: "btc-110k", Asset: "btc", Direction: domain.DirectionAbove, Level: 110_000, Deadline: scanDeadline},
		{MarketID: "btc-100k", Asset: "btc", Direction: domain.DirectionAbove, Level: 100_000, Deadline: scanDeadline},
	}
	return graph.NewBuilder([]domain.Market{a, b}, nil, scanNow).
		WithThresholds(thresholds).
		WithClusters([]cluster.Cluster{{MarketIDs: []string{"btc-110k", "btc-100k"}}}).
		WithAnalyzer(az).
		Build()
}

func TestImplicationNoViolationNoCandidate(t *testing.T) {
	// Correct direction, correct prices: P(B)=0.30 >= P(A)=0.10.
	az := &stubAnalyzer{analysis: domain.RelationshipAnalysis{
		Relation:   domain.RelationImpliesAB,
		Confidence: 0.95,
		Reasoning:  "above 110k implies above 100k",
	}}
	g := implicationGraph(0.30, az)

	s := NewImplication(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps, "prices already obey the constraint")
}

func TestImplicationViolationEmits(t *testing.T) {
	// P(B)=0.05 < P(A)=0.10: the consequent trades under the antecedent.
	az := &stubAnalyzer{analysis: domain.RelationshipAnalysis{
		Relation:   domain.RelationImpliesAB,
		Confidence: 0.95,
		Reasoning:  "above 110k implies above 100k",
	}}
	g := implicationGraph(0.05, az)

	s := NewImplication(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, domain.StrategyImplication, opp.Strategy)
	require.Len(t, opp.Legs, 2)
	assert.Equal(t, "btc-100k", opp.Legs[0].MarketID, "buy the consequent YES")
	assert.Equal(t, domain.SideYes, opp.Legs[0].Side)
	assert.Equal(t, "btc-110k", opp.Legs[1].MarketID, "buy the antecedent NO")
	assert.Equal(t, domain.SideNo, opp.Legs[1].Side)
	assert.Equal(t, 1.0, opp.GuaranteedReturn)
	require.NotNil(t, opp.Relationship)
}

func TestImplicationLowConfidenceSkipped(t *testing.T) {
	az := &stubAnalyzer{analysis: domain.RelationshipAnalysis{
		Relation:   domain.RelationImpliesAB,
		Confidence: 0.50,
	}}
	g := implicationGraph(0.05, az)

	s := NewImplication(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestImplicationBudgetExhaustedSurfaced(t *testing.T) {
	az := &stubAnalyzer{err: domain.ErrBudgetExhausted}
	g := implicationGraph(0.05, az)

	s := NewImplication(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.ErrorIs(t, err, domain.ErrBudgetExhausted)
	assert.Empty(t, opps)
}

func TestImplicationIndependentSkipped(t *testing.T) {
	az := &stubAnalyzer{analysis: domain.Independent("unrelated")}
	g := implicationGraph(0.05, az)

	s := NewImplication(DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, opps)
}
