package strategy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Implication detects A ⇒ B pairs priced backwards. If A winning forces B to
// win then P(B) >= P(A); when the market prices B cheaper, buying B YES plus
// A NO returns at least 1 in every outcome.
type Implication struct {
	params Params
	logger *slog.Logger
}

// NewImplication creates the implication strategy.
func NewImplication(params Params, logger *slog.Logger) *Implication {
	return &Implication{
		params: params,
		logger: logger.With(slog.String("strategy", "implication")),
	}
}

// Name returns the strategy identifier.
func (s *Implication) Name() string { return string(domain.StrategyImplication) }

// Requires declares the derived inputs this strategy consumes.
func (s *Implication) Requires() []graph.Input {
	return []graph.Input{graph.InputClusters, graph.InputLLM}
}

// Scan consults the analyzer for every pair inside each semantic cluster and
// emits a candidate per confident implication whose prices violate the
// constraint. When the analyzer budget runs out the remaining pairs are
// skipped and the error is surfaced so the scan report records the skip.
func (s *Implication) Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error) {
	az := g.Analyzer()
	if az == nil {
		return nil, nil
	}

	var out []domain.Opportunity
	for _, cl := range g.Clusters() {
		for i := 0; i < len(cl.MarketIDs); i++ {
			for j := i + 1; j < len(cl.MarketIDs); j++ {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}

				ma, okA := g.Market(cl.MarketIDs[i])
				mb, okB := g.Market(cl.MarketIDs[j])
				if !okA || !okB {
					continue
				}

				analysis, err := az.AnalyzePair(ctx, ma, mb)
				if err != nil {
					if errors.Is(err, domain.ErrBudgetExhausted) {
						return out, err
					}
					continue
				}

				if opp, ok := s.check(g, ma, mb, analysis); ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out, nil
}

// check applies the implication constraint for either direction of the
// analyzer's claim. antecedent ⇒ consequent with P(consequent) <
// P(antecedent) − ε is a violation: buy consequent YES plus antecedent NO.
func (s *Implication) check(g *graph.MarketGraph, ma, mb *domain.Market, analysis domain.RelationshipAnalysis) (domain.Opportunity, bool) {
	if analysis.Confidence < s.params.ImplConfidence {
		return domain.Opportunity{}, false
	}

	var antecedent, consequent *domain.Market
	switch analysis.Relation {
	case domain.RelationImpliesAB:
		antecedent, consequent = ma, mb
	case domain.RelationImpliesBA:
		antecedent, consequent = mb, ma
	default:
		return domain.Opportunity{}, false
	}

	// The consequent must still be open when the antecedent resolves.
	if consequent.EndTime.Before(antecedent.EndTime.Add(-s.params.TimeTolerance)) {
		return domain.Opportunity{}, false
	}

	if consequent.YesMid >= antecedent.YesMid-s.params.ImplGap {
		return domain.Opportunity{}, false
	}

	legs := []domain.Leg{
		{MarketID: consequent.ID, Side: domain.SideYes, BuyPrice: consequent.EffectiveBuyYes()},
		{MarketID: antecedent.ID, Side: domain.SideNo, BuyPrice: antecedent.EffectiveBuyNo()},
	}

	// Case analysis: antecedent YES forces consequent YES (pays 1);
	// antecedent NO pays 1 by itself; both legs pay in the middle case.
	opp := newOpportunity(domain.StrategyImplication, g, legs, 1.0)
	a := analysis
	opp.Relationship = &a
	return opp, true
}
