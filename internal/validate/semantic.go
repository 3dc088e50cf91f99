package validate

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
	"github.com/alanyoungcy/arbscan/internal/strategy"
)

// semanticLayer re-checks the relationship analysis for strategies that
// require one: it must exist, must not have been downgraded to INDEPENDENT,
// and an equivalence must survive the negation filter even when the analyzer
// insists otherwise.
type semanticLayer struct{}

func (l *semanticLayer) Name() string { return "semantic" }

func (l *semanticLayer) Check(_ context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	switch opp.Strategy {
	case domain.StrategyImplication, domain.StrategyEquivalent, domain.StrategyExhaustive:
	default:
		// Math-grounded strategies carry no analysis to re-check.
		return VerdictPass, "no analysis required"
	}

	a := opp.Relationship
	if a == nil {
		return VerdictReject, "missing relationship analysis"
	}
	if a.Relation == domain.RelationIndependent {
		return VerdictReject, "analysis downgraded to independent"
	}
	if a.Confidence <= 0 {
		return VerdictReject, "analysis confidence is zero"
	}

	if opp.Strategy == domain.StrategyEquivalent && len(opp.Legs) == 2 {
		ma, okA := g.Market(opp.Legs[0].MarketID)
		mb, okB := g.Market(opp.Legs[1].MarketID)
		if okA && okB && strategy.NegationMirror(ma.Question, mb.Question) {
			return VerdictReject, fmt.Sprintf("negation mirror: %q vs %q", ma.Question, mb.Question)
		}
	}

	return VerdictPass, string(a.Relation)
}
