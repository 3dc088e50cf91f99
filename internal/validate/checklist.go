package validate

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// checklistLayer attaches the deterministic human-review checklist. It never
// rejects: its output is the paper trail an operator walks before funding
// the plan.
type checklistLayer struct {
	cfg Config
}

func (l *checklistLayer) Name() string { return "checklist" }

func (l *checklistLayer) Check(_ context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	items := []string{
		fmt.Sprintf("[ ] logic: %s basket of %d legs, guaranteed return %.2f",
			opp.Strategy, len(opp.Legs), opp.GuaranteedReturn),
	}

	for _, leg := range opp.Legs {
		if m, ok := g.Market(leg.MarketID); ok {
			items = append(items, fmt.Sprintf("[ ] rules: read resolution rules of %q", m.Question))
		}
	}

	items = append(items,
		fmt.Sprintf("[ ] oracle: alignment %s across legs", opp.OracleAlignment),
		fmt.Sprintf("[ ] time: earliest resolution in %.1f days", opp.DaysToResolution),
		fmt.Sprintf("[ ] liquidity: thinnest leg $%.0f, slippage cost %.4f", opp.MinLegLiquidityUSD, opp.SlippageCost),
		fmt.Sprintf("[ ] apy: %.1f%% rated %s", opp.APY*100, opp.APYRating),
		"[ ] confirm no tie, postponement, or cancellation edge case",
		"[ ] execute a small test fill before full size",
	)
	if opp.HumanReview {
		items = append(items, "[ ] touch-style threshold leg: verify semantics against terminal-price legs")
	}

	opp.Checklist = items
	return VerdictPass, fmt.Sprintf("%d checklist items", len(items))
}
