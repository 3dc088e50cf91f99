package strategy

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Monotonicity detects price inversions on threshold ladders. For a scalar
// underlying, P(X > k) is non-increasing in k; a higher-threshold market
// priced above a lower one is a risk-free buy of the cheap side.
type Monotonicity struct {
	params Params
	logger *slog.Logger
}

// NewMonotonicity creates the ladder strategy.
func NewMonotonicity(params Params, logger *slog.Logger) *Monotonicity {
	return &Monotonicity{
		params: params,
		logger: logger.With(slog.String("strategy", "monotonicity")),
	}
}

// Name returns the strategy identifier.
func (s *Monotonicity) Name() string { return string(domain.StrategyMonotonicity) }

// Requires declares the derived inputs this strategy consumes.
func (s *Monotonicity) Requires() []graph.Input {
	return []graph.Input{graph.InputThresholds}
}

// Scan groups threshold parses into (asset, direction, deadline) ladders and
// emits one candidate per inverted pair.
func (s *Monotonicity) Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error) {
	ladders := groupLadders(g.Thresholds(), s.params.TimeTolerance)

	var out []domain.Opportunity
	for _, ladder := range ladders {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, s.scanLadder(g, ladder)...)
	}
	return out, nil
}

// scanLadder checks every pair in a sorted ladder, not only adjacent levels:
// a multi-level inversion is still one violation per offending pair.
func (s *Monotonicity) scanLadder(g *graph.MarketGraph, ladder []domain.ThresholdInfo) []domain.Opportunity {
	var out []domain.Opportunity
	for i := 0; i < len(ladder); i++ {
		for j := i + 1; j < len(ladder); j++ {
			low, high := &ladder[i], &ladder[j]
			if low.Level == high.Level {
				continue
			}

			lowMkt, okL := g.Market(low.MarketID)
			highMkt, okH := g.Market(high.MarketID)
			if !okL || !okH {
				continue
			}

			var legs []domain.Leg
			switch low.Direction {
			case domain.DirectionAbove:
				// P(X > low) must be >= P(X > high).
				if !exceeds(highMkt.YesMid-lowMkt.YesMid, s.params.MonoTolerance) {
					continue
				}
				legs = []domain.Leg{
					{MarketID: lowMkt.ID, Side: domain.SideYes, BuyPrice: lowMkt.EffectiveBuyYes()},
					{MarketID: highMkt.ID, Side: domain.SideNo, BuyPrice: highMkt.EffectiveBuyNo()},
				}
			case domain.DirectionBelow:
				// P(X < low) must be <= P(X < high).
				if !exceeds(lowMkt.YesMid-highMkt.YesMid, s.params.MonoTolerance) {
					continue
				}
				legs = []domain.Leg{
					{MarketID: highMkt.ID, Side: domain.SideYes, BuyPrice: highMkt.EffectiveBuyYes()},
					{MarketID: lowMkt.ID, Side: domain.SideNo, BuyPrice: lowMkt.EffectiveBuyNo()},
				}
			default:
				continue
			}

			// One leg always pays at resolution; the middle band pays both.
			opp := newOpportunity(domain.StrategyMonotonicity, g, legs, 1.0)
			opp.HumanReview = low.Touch || high.Touch
			if opp.EffectiveProfit <= 0 {
				// Still emitted: Layer 3 records the rejection so the
				// near-miss shows up in the scan summary.
				s.logger.Debug("inverted ladder without executable edge",
					slog.String("low", low.MarketID),
					slog.String("high", high.MarketID),
				)
			}
			out = append(out, opp)
		}
	}
	return out
}

// groupLadders buckets thresholds by (asset, direction) and then clusters
// deadlines within the tolerance, sorting each ladder by level ascending.
// Group iteration order is deterministic.
func groupLadders(thresholds []domain.ThresholdInfo, tol time.Duration) [][]domain.ThresholdInfo {
	type key struct {
		asset string
		dir   domain.ThresholdDirection
	}

	byKey := make(map[key][]domain.ThresholdInfo)
	var keys []key
	for _, t := range thresholds {
		k := key{t.Asset, t.Direction}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], t)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].asset != keys[j].asset {
			return keys[i].asset < keys[j].asset
		}
		return keys[i].dir < keys[j].dir
	})

	var ladders [][]domain.ThresholdInfo
	for _, k := range keys {
		group := byKey[k]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Deadline.Before(group[j].Deadline)
		})

		// Greedy deadline clustering: a ladder holds members within the
		// tolerance of its first deadline.
		for start := 0; start < len(group); {
			end := start + 1
			for end < len(group) &&
				group[end].Deadline.Sub(group[start].Deadline) <= tol {
				end++
			}
			ladder := append([]domain.ThresholdInfo(nil), group[start:end]...)
			sort.Slice(ladder, func(i, j int) bool { return ladder[i].Level < ladder[j].Level })
			if len(ladder) >= 2 {
				ladders = append(ladders, ladder)
			}
			start = end
		}
	}
	return ladders
}
