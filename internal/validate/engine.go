// Package validate pushes candidate opportunities through the six acceptance
// layers in declared order: semantic, rules and oracle alignment, math and
// execution, APY, checklist, pre-flight. The first failing layer rejects the
// candidate; every layer reached leaves a trail entry.
package validate

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Verdict is one layer's decision.
type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictReject
	VerdictStale
)

// Layer is one stage of the acceptance pipeline.
type Layer interface {
	Name() string
	Check(ctx context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string)
}

// Config carries the validation thresholds.
type Config struct {
	ProfitEpsilon     float64       // minimum edge after costs (ε_profit)
	ExecEpsilon       float64       // minimum edge after slippage (ε_exec)
	TargetNotionalUSD float64       // notional walked for VWAP slippage
	MinDepthUSD       float64       // per-leg ask depth floor
	DepthPriceBand    float64       // price band for the depth sum
	MinLiquidityUSD   float64       // catalog liquidity floor pre-book
	MinAPY            float64       // annualized return floor
	TimeTolerance     time.Duration // deadline alignment tolerance
	PlanMaxAge        time.Duration // staleness bound for pre-flight
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		ProfitEpsilon:     0.005,
		ExecEpsilon:       0.002,
		TargetNotionalUSD: 500,
		MinDepthUSD:       10_000,
		DepthPriceBand:    0.05,
		MinLiquidityUSD:   1_000,
		MinAPY:            0.15,
		TimeTolerance:     24 * time.Hour,
		PlanMaxAge:        60 * time.Second,
	}
}

// Engine runs the layers strictly in order for each candidate.
type Engine struct {
	layers []Layer
	logger *slog.Logger
}

// NewEngine assembles the standard six-layer pipeline. books may be nil, in
// which case pre-flight degrades to a staleness-only check.
func NewEngine(cfg Config, books domain.BookSource, nBook int, logger *slog.Logger) *Engine {
	l := logger.With(slog.String("component", "validate"))
	return &Engine{
		logger: l,
		layers: []Layer{
			&semanticLayer{},
			&rulesLayer{cfg: cfg},
			&mathLayer{cfg: cfg},
			&apyLayer{cfg: cfg},
			&checklistLayer{cfg: cfg},
			&preflightLayer{cfg: cfg, books: books, nBook: nBook, logger: l},
		},
	}
}

// Layers exposes the pipeline for tests that drive a subset.
func (e *Engine) Layers() []Layer { return e.layers }

// Validate runs the candidate through all layers. The opportunity is mutated
// in place: trail entries accumulate, and the status lands on ACCEPTED,
// REJECTED(layer, reason), or STALE.
func (e *Engine) Validate(ctx context.Context, opp *domain.Opportunity, g *graph.MarketGraph) {
	opp.Status = domain.OppValidating

	for _, layer := range e.layers {
		if ctx.Err() != nil {
			opp.Reject(layer.Name(), "scan cancelled")
			return
		}

		verdict, reason := layer.Check(ctx, opp, g)
		now := time.Now().UTC()

		switch verdict {
		case VerdictPass:
			opp.RecordLayer(layer.Name(), true, reason, now)
		case VerdictStale:
			opp.RecordLayer(layer.Name(), false, reason, now)
			opp.MarkStale(reason)
			e.logger.Debug("opportunity stale",
				slog.String("id", opp.ID),
				slog.String("reason", reason),
			)
			return
		default:
			opp.RecordLayer(layer.Name(), false, reason, now)
			opp.Reject(layer.Name(), reason)
			e.logger.Debug("opportunity rejected",
				slog.String("id", opp.ID),
				slog.String("layer", layer.Name()),
				slog.String("reason", reason),
			)
			return
		}
	}

	opp.Status = domain.OppAccepted
}
