package validate

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// rulesLayer checks resolution timing, oracle alignment, and the threshold
// direction of implication claims. Oracle misalignment is the dominant
// historical failure mode of combinatorial arbitrage, so it rejects
// outright.
type rulesLayer struct {
	cfg Config
}

func (l *rulesLayer) Name() string { return "rules" }

func (l *rulesLayer) Check(_ context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	if verdict, reason := l.checkTime(opp, g); verdict != VerdictPass {
		return verdict, reason
	}
	if verdict, reason := l.checkDirection(opp, g); verdict != VerdictPass {
		return verdict, reason
	}
	return l.checkOracle(opp, g)
}

// checkTime enforces the per-strategy deadline constraints.
func (l *rulesLayer) checkTime(opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	switch opp.Strategy {
	case domain.StrategyImplication, domain.StrategyTemporal, domain.StrategyMonotonicity:
		yesLeg, noLeg, ok := splitPairLegs(opp)
		if !ok {
			return VerdictPass, ""
		}
		consequent, okC := g.Market(yesLeg.MarketID)
		antecedent, okA := g.Market(noLeg.MarketID)
		if !okC || !okA {
			return VerdictReject, "leg market missing from snapshot"
		}
		// The consequent must outlive the antecedent's resolution.
		if opp.Strategy != domain.StrategyTemporal &&
			consequent.EndTime.Before(antecedent.EndTime.Add(-l.cfg.TimeTolerance)) {
			return VerdictReject, fmt.Sprintf(
				"consequent resolves %s before antecedent %s",
				consequent.EndTime.Format("2006-01-02"), antecedent.EndTime.Format("2006-01-02"))
		}

	case domain.StrategyExhaustive, domain.StrategyInterval, domain.StrategyEquivalent:
		// All legs must resolve together.
		var first *domain.Market
		for _, leg := range opp.Legs {
			m, ok := g.Market(leg.MarketID)
			if !ok {
				return VerdictReject, "leg market missing from snapshot"
			}
			if first == nil {
				first = m
				continue
			}
			d := m.EndTime.Sub(first.EndTime)
			if d < 0 {
				d = -d
			}
			if d > l.cfg.TimeTolerance {
				return VerdictReject, fmt.Sprintf(
					"leg deadlines diverge: %s vs %s",
					first.EndTime.Format("2006-01-02"), m.EndTime.Format("2006-01-02"))
			}
		}
	}
	return VerdictPass, ""
}

// checkDirection verifies that an implication claim over two threshold
// markets matches the parsed level ordering. ABOVE: the higher level implies
// the lower; BELOW: the lower level implies the higher. A mismatch rejects
// regardless of analyzer confidence.
func (l *rulesLayer) checkDirection(opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	if opp.Strategy != domain.StrategyImplication && opp.Strategy != domain.StrategyTemporal {
		return VerdictPass, ""
	}
	if !g.Has(graph.InputThresholds) {
		return VerdictPass, ""
	}

	yesLeg, noLeg, ok := splitPairLegs(opp)
	if !ok {
		return VerdictPass, ""
	}
	// The YES leg is the consequent, the NO leg the antecedent.
	consequent, okC := g.Threshold(yesLeg.MarketID)
	antecedent, okA := g.Threshold(noLeg.MarketID)
	if !okC || !okA {
		return VerdictPass, ""
	}
	if consequent.Asset != antecedent.Asset || consequent.Direction != antecedent.Direction {
		return VerdictPass, ""
	}

	switch consequent.Direction {
	case domain.DirectionAbove:
		if antecedent.Level < consequent.Level {
			return VerdictReject, fmt.Sprintf(
				"threshold direction mismatch: above %.0f cannot imply above %.0f",
				antecedent.Level, consequent.Level)
		}
	case domain.DirectionBelow:
		if antecedent.Level > consequent.Level {
			return VerdictReject, fmt.Sprintf(
				"threshold direction mismatch: below %.0f cannot imply below %.0f",
				antecedent.Level, consequent.Level)
		}
	}
	return VerdictPass, ""
}

// checkOracle grades the legs' resolution sources pairwise; the basket is as
// weak as its weakest pair.
func (l *rulesLayer) checkOracle(opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	sources := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		m, ok := g.Market(leg.MarketID)
		if !ok {
			return VerdictReject, "leg market missing from snapshot"
		}
		sources = append(sources, ExtractSource(m))
	}

	alignment := domain.OracleAligned
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			alignment = worseAlignment(alignment, ClassifySources(sources[i], sources[j]))
		}
	}
	opp.OracleAlignment = alignment

	if alignment == domain.OracleMisaligned {
		return VerdictReject, fmt.Sprintf("oracle misalignment across legs: %v", sources)
	}
	return VerdictPass, string(alignment)
}

// splitPairLegs returns the YES and NO legs of a two-leg pair opportunity.
func splitPairLegs(opp *domain.Opportunity) (yes, no domain.Leg, ok bool) {
	if len(opp.Legs) != 2 {
		return domain.Leg{}, domain.Leg{}, false
	}
	a, b := opp.Legs[0], opp.Legs[1]
	switch {
	case a.Side == domain.SideYes && b.Side == domain.SideNo:
		return a, b, true
	case a.Side == domain.SideNo && b.Side == domain.SideYes:
		return b, a, true
	}
	return domain.Leg{}, domain.Leg{}, false
}
