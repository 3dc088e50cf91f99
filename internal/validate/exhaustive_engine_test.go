package validate

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
	"github.com/alanyoungcy/arbscan/internal/strategy"
)

// fixedVerifier reports a complete set at fixed confidence.
type fixedVerifier struct {
	confidence float64
}

func (f *fixedVerifier) AnalyzePair(_ context.Context, _, _ *domain.Market) (domain.RelationshipAnalysis, error) {
	return domain.Independent("not used"), nil
}

func (f *fixedVerifier) VerifyExhaustiveSet(_ context.Context, _ []domain.Market) (domain.ExhaustiveVerification, error) {
	return domain.ExhaustiveVerification{IsComplete: true, Confidence: f.confidence}, nil
}

// TestEngineAcceptsExhaustiveSet drives the four-outcome scenario through
// strategy and engine: mids {0.18, 0.12, 0.05, 0.58}, asks half a cent over,
// cost 0.95 against a guaranteed 1.00, 30-day APY well above the floor.
func TestEngineAcceptsExhaustiveSet(t *testing.T) {
	mids := []float64{0.18, 0.12, 0.05, 0.58}
	markets := make([]domain.Market, len(mids))
	ids := make([]string, len(mids))
	for i, mid := range mids {
		id := string(rune('a' + i))
		ids[i] = id
		markets[i] = domain.Market{
			ID:               id,
			EventID:          "ev1",
			Question:         "outcome " + id,
			YesTokenID:       id + "-yes",
			NoTokenID:        id + "-no",
			YesMid:           mid,
			NoMid:            1 - mid,
			BestBidYes:       mid - 0.005,
			BestAskYes:       mid + 0.005,
			LiquidityUSD:     50_000,
			EndTime:          valDeadline,
			NegRisk:          true,
			ResolutionSource: "associated press",
		}
	}
	events := map[string]domain.Event{"ev1": {ID: "ev1", Markets: ids}}

	g := graph.NewBuilder(markets, events, valNow).
		WithAnalyzer(&fixedVerifier{confidence: 0.95}).
		Build()

	s := strategy.NewExhaustive(strategy.DefaultParams(), slog.Default())
	opps, err := s.Scan(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	opp := opps[0]

	engine := NewEngine(DefaultConfig(), nil, 4, slog.Default())
	engine.Validate(context.Background(), &opp, g)

	require.Equal(t, domain.OppAccepted, opp.Status, "reject: %s/%s", opp.RejectLayer, opp.RejectReason)
	assert.InDelta(t, 0.95, opp.Cost, 1e-9)
	assert.Equal(t, 1.0, opp.GuaranteedReturn)
	assert.InDelta(t, 0.05/0.95*365/30, opp.APY, 0.02)
	assert.Equal(t, domain.APYGood, opp.APYRating)
	require.Len(t, opp.Legs, 4)
}
