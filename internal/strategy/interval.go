package strategy

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
	"github.com/alanyoungcy/arbscan/internal/parser"
)

// Interval detects complementary interval sets whose combined YES cost sits
// below 1. Threshold parses contribute their open-ended interval reading so
// a "below $80k" market can cap an interval ladder.
type Interval struct {
	params Params
	logger *slog.Logger
}

// NewInterval creates the interval-cover strategy.
func NewInterval(params Params, logger *slog.Logger) *Interval {
	return &Interval{
		params: params,
		logger: logger.With(slog.String("strategy", "interval")),
	}
}

// Name returns the strategy identifier.
func (s *Interval) Name() string { return string(domain.StrategyInterval) }

// Requires declares the derived inputs this strategy consumes.
func (s *Interval) Requires() []graph.Input {
	return []graph.Input{graph.InputIntervals}
}

// Scan groups intervals by (asset, deadline) and searches for chains that
// cover the whole outcome space. Cross-event members are allowed here; the
// rules layer rejects mixes whose resolution sources are misaligned.
func (s *Interval) Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error) {
	all := append([]domain.IntervalInfo(nil), g.Intervals()...)
	if g.Has(graph.InputThresholds) {
		for _, t := range g.Thresholds() {
			if t.Touch {
				continue
			}
			all = append(all, thresholdAsInterval(t))
		}
	}

	groups := groupIntervals(all, s.params.TimeTolerance)

	var out []domain.Opportunity
	for _, group := range groups {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, s.scanGroup(g, group)...)
	}
	return out, nil
}

// scanGroup searches a sorted interval group for full covers: a chain
// starting open at -inf, stepping through adjacent members, ending open at
// +inf. Exactly one chain member pays at resolution, so the cover returns 1.
func (s *Interval) scanGroup(g *graph.MarketGraph, group []domain.IntervalInfo) []domain.Opportunity {
	sort.Slice(group, func(i, j int) bool {
		if group[i].Lower != group[j].Lower {
			return group[i].Lower < group[j].Lower
		}
		return group[i].MarketID < group[j].MarketID
	})

	var out []domain.Opportunity
	for i := range group {
		if !math.IsInf(group[i].Lower, -1) {
			continue
		}
		chain := []domain.IntervalInfo{group[i]}
		out = append(out, s.extendChain(g, group, chain)...)
	}
	return out
}

// extendChain grows a partial cover recursively; every completion (reaching
// +inf) below the cost bound becomes a candidate.
func (s *Interval) extendChain(g *graph.MarketGraph, group, chain []domain.IntervalInfo) []domain.Opportunity {
	last := chain[len(chain)-1]
	if math.IsInf(last.Upper, 1) {
		if opp, ok := s.buildCover(g, chain); ok {
			return []domain.Opportunity{opp}
		}
		return nil
	}

	var out []domain.Opportunity
	for i := range group {
		next := group[i]
		if containsMarket(chain, next.MarketID) {
			continue
		}
		if !parser.AdjacentIntervals(&last, &next) {
			continue
		}
		out = append(out, s.extendChain(g, group, append(chain, next))...)
	}
	return out
}

func (s *Interval) buildCover(g *graph.MarketGraph, chain []domain.IntervalInfo) (domain.Opportunity, bool) {
	legs := make([]domain.Leg, 0, len(chain))
	var cost float64
	for _, iv := range chain {
		m, ok := g.Market(iv.MarketID)
		if !ok {
			return domain.Opportunity{}, false
		}
		price := m.EffectiveBuyYes()
		if price <= 0 {
			return domain.Opportunity{}, false
		}
		cost += price
		legs = append(legs, domain.Leg{MarketID: m.ID, Side: domain.SideYes, BuyPrice: price})
	}
	if cost >= 1-s.params.ProfitEpsilon {
		return domain.Opportunity{}, false
	}
	return newOpportunity(domain.StrategyInterval, g, legs, 1.0), true
}

func containsMarket(chain []domain.IntervalInfo, id string) bool {
	for _, iv := range chain {
		if iv.MarketID == id {
			return true
		}
	}
	return false
}

// thresholdAsInterval reads a threshold market as its open-ended interval:
// ABOVE k is (k, +inf), BELOW k is (-inf, k).
func thresholdAsInterval(t domain.ThresholdInfo) domain.IntervalInfo {
	iv := domain.IntervalInfo{
		MarketID: t.MarketID,
		Asset:    t.Asset,
		Unit:     t.Unit,
		Deadline: t.Deadline,
	}
	if t.Direction == domain.DirectionAbove {
		iv.Lower = t.Level
		iv.Upper = math.Inf(1)
	} else {
		iv.Lower = math.Inf(-1)
		iv.Upper = t.Level
	}
	return iv
}

func groupIntervals(intervals []domain.IntervalInfo, tol time.Duration) [][]domain.IntervalInfo {
	byAsset := make(map[string][]domain.IntervalInfo)
	var assets []string
	for _, iv := range intervals {
		if _, ok := byAsset[iv.Asset]; !ok {
			assets = append(assets, iv.Asset)
		}
		byAsset[iv.Asset] = append(byAsset[iv.Asset], iv)
	}
	sort.Strings(assets)

	var groups [][]domain.IntervalInfo
	for _, asset := range assets {
		group := byAsset[asset]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Deadline.Before(group[j].Deadline)
		})
		for start := 0; start < len(group); {
			end := start + 1
			for end < len(group) && group[end].Deadline.Sub(group[start].Deadline) <= tol {
				end++
			}
			if end-start >= 2 {
				groups = append(groups, append([]domain.IntervalInfo(nil), group[start:end]...))
			}
			start = end
		}
	}
	return groups
}
