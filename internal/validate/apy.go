package validate

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// apyLayer annualizes the edge over the earliest leg resolution and rejects
// plans whose capital lockup is not worth the return.
type apyLayer struct {
	cfg Config
}

func (l *apyLayer) Name() string { return "apy" }

func (l *apyLayer) Check(_ context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	now := g.Now()

	days := -1.0
	alreadyResolved := false
	for _, leg := range opp.Legs {
		m, ok := g.Market(leg.MarketID)
		if !ok {
			return VerdictReject, "leg market missing from snapshot"
		}
		d := m.EndTime.Sub(now).Hours() / 24
		if d <= 0 {
			alreadyResolved = true
			d = 0
		}
		if days < 0 || d < days {
			days = d
		}
	}
	if days < 0 {
		days = 0
	}
	opp.DaysToResolution = days

	// APY on an immediately resolving market is undefined; clamp the
	// denominator to one day and force the rating down.
	denom := days
	if denom < 1 {
		denom = 1
	}
	opp.APY = opp.ProfitPct * (365 / denom)

	switch {
	case alreadyResolved:
		opp.APYRating = domain.APYReject
	case opp.APY < l.cfg.MinAPY:
		opp.APYRating = domain.APYReject
	case opp.APY >= 1.0:
		opp.APYRating = domain.APYExcellent
	case opp.APY >= 0.4:
		opp.APYRating = domain.APYGood
	default:
		opp.APYRating = domain.APYAcceptable
	}

	if opp.APYRating == domain.APYReject {
		return VerdictReject, fmt.Sprintf(
			"apy %.3f below floor %.3f over %.1f days", opp.APY, l.cfg.MinAPY, days)
	}
	return VerdictPass, fmt.Sprintf("apy %.3f (%s)", opp.APY, opp.APYRating)
}
