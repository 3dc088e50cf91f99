// Package strategy holds the pluggable opportunity producers. A strategy is
// a pure function of the market graph: it consumes a candidate group and
// emits zero or more raw opportunities for the validation engine to judge.
package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Strategy defines the contract for scanner strategies. Scan must be
// deterministic for a fixed graph and analyzer; it must not reach the venue
// directly.
type Strategy interface {
	Name() string
	Requires() []graph.Input
	Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error)
}

// Params holds the detection thresholds shared across strategies. Field
// defaults follow the scan configuration.
type Params struct {
	MonoTolerance        float64       // minimum inversion to flag a ladder violation
	ImplConfidence       float64       // analyzer confidence floor for implication
	ImplGap              float64       // minimum price violation for implication
	EquivConfidence      float64       // analyzer confidence floor for equivalence
	EquivGap             float64       // minimum price gap for equivalence
	ExhaustiveConfidence float64       // analyzer confidence floor for exhaustive sets
	ExhaustiveEpsilon    float64       // price-sum margin below 1 for exhaustive sets
	ProfitEpsilon        float64       // minimum raw edge before validation
	TimeTolerance        time.Duration // deadline grouping tolerance
}

// DefaultParams mirror the documented defaults.
func DefaultParams() Params {
	return Params{
		MonoTolerance:        0.01,
		ImplConfidence:       0.90,
		ImplGap:              0.02,
		EquivConfidence:      0.90,
		EquivGap:             0.03,
		ExhaustiveConfidence: 0.85,
		ExhaustiveEpsilon:    0.02,
		ProfitEpsilon:        0.005,
		TimeTolerance:        24 * time.Hour,
	}
}

// newOpportunity assembles a raw opportunity from its legs, computing the
// economics from effective buy prices. Validation recomputes and re-judges
// everything; the strategy-level numbers are the discovery snapshot.
func newOpportunity(kind domain.StrategyKind, g *graph.MarketGraph, legs []domain.Leg, guaranteedReturn float64) domain.Opportunity {
	now := g.Now()

	var cost, midSum float64
	minLiquidity := -1.0
	earliestEnd := time.Time{}
	for _, l := range legs {
		cost += l.BuyPrice
		if m, ok := g.Market(l.MarketID); ok {
			midSum += m.MidPrice(l.Side)
			if minLiquidity < 0 || m.LiquidityUSD < minLiquidity {
				minLiquidity = m.LiquidityUSD
			}
			if earliestEnd.IsZero() || m.EndTime.Before(earliestEnd) {
				earliestEnd = m.EndTime
			}
		}
	}
	if minLiquidity < 0 {
		minLiquidity = 0
	}

	days := 0.0
	if !earliestEnd.IsZero() && earliestEnd.After(now) {
		days = earliestEnd.Sub(now).Hours() / 24
	}

	o := domain.Opportunity{
		ID:                 uuid.New().String(),
		Strategy:           kind,
		Legs:               legs,
		Cost:               cost,
		GuaranteedReturn:   guaranteedReturn,
		MidProfit:          guaranteedReturn - midSum,
		EffectiveProfit:    guaranteedReturn - cost,
		MinLegLiquidityUSD: minLiquidity,
		DaysToResolution:   days,
		Status:             domain.OppPending,
		DiscoveredAt:       now,
	}
	if o.Cost > 0 {
		o.ProfitPct = o.EffectiveProfit / o.Cost
	}
	return o
}

// exceeds reports whether a price delta clears the detection tolerance. A
// delta exactly at the tolerance counts: the invariant holds "within"
// tolerance, so equality is already a violation. The epsilon absorbs float
// rounding on deltas like 0.31-0.30.
func exceeds(delta, tol float64) bool {
	return delta >= tol-1e-9
}

// withinTolerance reports whether two deadlines fall inside the grouping
// tolerance.
func withinTolerance(a, b time.Time, tol time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
