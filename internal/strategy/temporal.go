package strategy

import (
	"context"
	"log/slog"
	"regexp"
	"sort"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Temporal detects cumulative-probability violations across nested time
// windows: "BTC hits $100k by February" dominates "by January" — reaching
// the level inside the shorter window reaches it inside the longer one. The
// semantics are implication, established syntactically instead of via the
// analyzer.
type Temporal struct {
	params Params
	logger *slog.Logger
}

// NewTemporal creates the nested-window strategy.
func NewTemporal(params Params, logger *slog.Logger) *Temporal {
	return &Temporal{
		params: params,
		logger: logger.With(slog.String("strategy", "temporal")),
	}
}

// Name returns the strategy identifier.
func (s *Temporal) Name() string { return string(domain.StrategyTemporal) }

// Requires declares the derived inputs this strategy consumes.
func (s *Temporal) Requires() []graph.Input {
	return []graph.Input{graph.InputThresholds}
}

// cumulativeRe identifies "by <deadline>"-style questions whose probability
// accumulates over the window. Terminal-price questions ("above $X on June
// 30") are not cumulative and never pair here.
var cumulativeRe = regexp.MustCompile(`(?i)\b(?:by|before|reach|reaches|hit|hits)\b`)

// Scan pairs threshold markets on the same asset, direction, and level whose
// deadlines differ by more than the grouping tolerance. The shorter window
// implies the longer; a cheaper long window is the violation.
func (s *Temporal) Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error) {
	type key struct {
		asset string
		dir   domain.ThresholdDirection
		level float64
	}

	byKey := make(map[key][]domain.ThresholdInfo)
	var keys []key
	for _, t := range g.Thresholds() {
		m, ok := g.Market(t.MarketID)
		if !ok || !cumulativeRe.MatchString(m.Question) {
			continue
		}
		k := key{t.Asset, t.Direction, t.Level}
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], t)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].asset != keys[j].asset {
			return keys[i].asset < keys[j].asset
		}
		if keys[i].dir != keys[j].dir {
			return keys[i].dir < keys[j].dir
		}
		return keys[i].level < keys[j].level
	})

	var out []domain.Opportunity
	for _, k := range keys {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		windows := byKey[k]
		sort.Slice(windows, func(i, j int) bool {
			return windows[i].Deadline.Before(windows[j].Deadline)
		})

		for i := 0; i < len(windows); i++ {
			for j := i + 1; j < len(windows); j++ {
				short, long := windows[i], windows[j]
				if withinTolerance(short.Deadline, long.Deadline, s.params.TimeTolerance) {
					// Same window after tolerance; monotonicity ladders
					// already own this pair.
					continue
				}

				shortMkt, okS := g.Market(short.MarketID)
				longMkt, okL := g.Market(long.MarketID)
				if !okS || !okL {
					continue
				}

				// Cumulative windows: P(long) >= P(short).
				if longMkt.YesMid >= shortMkt.YesMid-s.params.ImplGap {
					continue
				}

				legs := []domain.Leg{
					{MarketID: longMkt.ID, Side: domain.SideYes, BuyPrice: longMkt.EffectiveBuyYes()},
					{MarketID: shortMkt.ID, Side: domain.SideNo, BuyPrice: shortMkt.EffectiveBuyNo()},
				}
				opp := newOpportunity(domain.StrategyTemporal, g, legs, 1.0)
				opp.HumanReview = short.Touch || long.Touch
				out = append(out, opp)
			}
		}
	}
	return out, nil
}
