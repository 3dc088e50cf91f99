// Package graph exposes the read-only view strategies scan over: the market
// snapshot, parsed threshold and interval tables, semantic clusters, and a
// memoized analyzer handle. Strategies never reach the venue directly;
// everything they may touch is here, indexed by identifier.
package graph

import (
	"context"
	"time"

	"github.com/alanyoungcy/arbscan/internal/cluster"
	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Input names a derived table a strategy needs. The orchestrator computes
// each requested input at most once per scan.
type Input string

const (
	InputThresholds Input = "thresholds"
	InputIntervals  Input = "intervals"
	InputClusters   Input = "clusters"
	InputLLM        Input = "llm"
	InputOrderBook  Input = "order_book"
)

// PairAnalyzer is the memoized LLM handle strategies consult.
type PairAnalyzer interface {
	AnalyzePair(ctx context.Context, a, b *domain.Market) (domain.RelationshipAnalysis, error)
	VerifyExhaustiveSet(ctx context.Context, markets []domain.Market) (domain.ExhaustiveVerification, error)
}

// MarketGraph is built once per scan and shared read-only by all strategies.
type MarketGraph struct {
	markets []domain.Market
	byID    map[string]int
	events  map[string]domain.Event
	byEvent map[string][]string

	thresholds []domain.ThresholdInfo
	intervals  []domain.IntervalInfo
	clusters   []cluster.Cluster
	analyzer   PairAnalyzer

	available map[Input]bool
	now       time.Time
}

// Builder assembles a MarketGraph. Zero-valued inputs simply leave the
// corresponding Input unavailable.
type Builder struct {
	g *MarketGraph
}

// NewBuilder starts a graph over the snapshot. now anchors time-derived
// computations so a scan is internally consistent.
func NewBuilder(markets []domain.Market, events map[string]domain.Event, now time.Time) *Builder {
	g := &MarketGraph{
		markets:   markets,
		byID:      make(map[string]int, len(markets)),
		events:    events,
		byEvent:   make(map[string][]string),
		available: make(map[Input]bool),
		now:       now,
	}
	for i := range markets {
		g.byID[markets[i].ID] = i
		if eid := markets[i].EventID; eid != "" {
			g.byEvent[eid] = append(g.byEvent[eid], markets[i].ID)
		}
	}
	return &Builder{g: g}
}

// WithThresholds attaches the parsed threshold table.
func (b *Builder) WithThresholds(t []domain.ThresholdInfo) *Builder {
	b.g.thresholds = t
	b.g.available[InputThresholds] = true
	return b
}

// WithIntervals attaches the parsed interval table.
func (b *Builder) WithIntervals(iv []domain.IntervalInfo) *Builder {
	b.g.intervals = iv
	b.g.available[InputIntervals] = true
	return b
}

// WithClusters attaches the semantic cluster index.
func (b *Builder) WithClusters(c []cluster.Cluster) *Builder {
	b.g.clusters = c
	b.g.available[InputClusters] = true
	return b
}

// WithAnalyzer attaches the memoized analyzer.
func (b *Builder) WithAnalyzer(a PairAnalyzer) *Builder {
	b.g.analyzer = a
	b.g.available[InputLLM] = true
	return b
}

// Build finalizes the graph.
func (b *Builder) Build() *MarketGraph {
	return b.g
}

// Has reports whether the input was computed for this scan.
func (g *MarketGraph) Has(input Input) bool { return g.available[input] }

// Now is the scan's time anchor.
func (g *MarketGraph) Now() time.Time { return g.now }

// Markets returns the snapshot in venue order. Callers must not mutate.
func (g *MarketGraph) Markets() []domain.Market { return g.markets }

// Market looks a market up by ID.
func (g *MarketGraph) Market(id string) (*domain.Market, bool) {
	i, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return &g.markets[i], true
}

// Event looks an event up by ID.
func (g *MarketGraph) Event(id string) (domain.Event, bool) {
	ev, ok := g.events[id]
	return ev, ok
}

// EventIDs returns all event IDs with at least one market, in snapshot order.
func (g *MarketGraph) EventIDs() []string {
	seen := make(map[string]struct{}, len(g.byEvent))
	var out []string
	for i := range g.markets {
		eid := g.markets[i].EventID
		if eid == "" {
			continue
		}
		if _, ok := seen[eid]; ok {
			continue
		}
		seen[eid] = struct{}{}
		out = append(out, eid)
	}
	return out
}

// EventMarkets returns the market IDs grouped under an event.
func (g *MarketGraph) EventMarkets(eventID string) []string {
	return g.byEvent[eventID]
}

// Thresholds returns the parsed threshold table.
func (g *MarketGraph) Thresholds() []domain.ThresholdInfo { return g.thresholds }

// Threshold returns the parse for one market, if any.
func (g *MarketGraph) Threshold(marketID string) (*domain.ThresholdInfo, bool) {
	for i := range g.thresholds {
		if g.thresholds[i].MarketID == marketID {
			return &g.thresholds[i], true
		}
	}
	return nil, false
}

// Intervals returns the parsed interval table.
func (g *MarketGraph) Intervals() []domain.IntervalInfo { return g.intervals }

// Clusters returns the semantic cluster index.
func (g *MarketGraph) Clusters() []cluster.Cluster { return g.clusters }

// Analyzer returns the memoized analyzer, or nil when LLM input is
// unavailable.
func (g *MarketGraph) Analyzer() PairAnalyzer { return g.analyzer }
