package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Exhaustive detects complete outcome sets priced below 1: when exactly one
// of an event's markets must resolve YES, buying every YES leg under a
// dollar locks in the difference.
type Exhaustive struct {
	params Params
	logger *slog.Logger
}

// NewExhaustive creates the complete-set strategy.
func NewExhaustive(params Params, logger *slog.Logger) *Exhaustive {
	return &Exhaustive{
		params: params,
		logger: logger.With(slog.String("strategy", "exhaustive")),
	}
}

// Name returns the strategy identifier.
func (s *Exhaustive) Name() string { return string(domain.StrategyExhaustive) }

// Requires declares the derived inputs this strategy consumes. The analyzer
// is consulted when available but event grouping alone is enough to scan.
func (s *Exhaustive) Requires() []graph.Input { return nil }

// Scan walks events in snapshot order. A set qualifies when the summed
// effective YES cost clears the epsilon below 1 and, with an analyzer
// attached, the analyzer verifies completeness at the configured confidence;
// without an analyzer the venue's mutually-exclusive flag on every member
// qualifies it instead. With an analyzer attached the venue flag alone does
// not qualify a set.
func (s *Exhaustive) Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error) {
	var out []domain.Opportunity

	for _, eventID := range g.EventIDs() {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		ids := g.EventMarkets(eventID)
		if len(ids) < 2 {
			continue
		}

		markets := make([]domain.Market, 0, len(ids))
		venueFlagged := true
		var cost float64
		priced := true
		for _, id := range ids {
			m, ok := g.Market(id)
			if !ok {
				priced = false
				break
			}
			markets = append(markets, *m)
			venueFlagged = venueFlagged && m.NegRisk
			p := m.EffectiveBuyYes()
			if p <= 0 {
				priced = false
				break
			}
			cost += p
		}
		if !priced {
			continue
		}
		if cost >= 1-s.params.ExhaustiveEpsilon {
			continue
		}

		verification, err := s.verify(ctx, g, markets, venueFlagged)
		if err != nil {
			if errors.Is(err, domain.ErrBudgetExhausted) {
				s.logger.Warn("analyzer budget exhausted, remaining events skipped")
				return out, err
			}
			s.logger.Warn("exhaustive verification failed",
				slog.String("event", eventID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if verification == nil {
			continue
		}

		legs := make([]domain.Leg, 0, len(markets))
		for i := range markets {
			legs = append(legs, domain.Leg{
				MarketID: markets[i].ID,
				Side:     domain.SideYes,
				BuyPrice: markets[i].EffectiveBuyYes(),
			})
		}

		opp := newOpportunity(domain.StrategyExhaustive, g, legs, 1.0)
		opp.Relationship = &domain.RelationshipAnalysis{
			Relation:             domain.RelationExhaustive,
			Confidence:           verification.Confidence,
			Reasoning:            fmt.Sprintf("complete outcome set over event %s", eventID),
			EdgeCases:            verification.MissingCases,
			ResolutionCompatible: true,
		}
		out = append(out, opp)
	}
	return out, nil
}

// verify consults the analyzer when present. Without an analyzer only
// venue-flagged sets qualify, at the venue's implied confidence.
func (s *Exhaustive) verify(ctx context.Context, g *graph.MarketGraph, markets []domain.Market, venueFlagged bool) (*domain.ExhaustiveVerification, error) {
	if g.Has(graph.InputLLM) && g.Analyzer() != nil {
		v, err := g.Analyzer().VerifyExhaustiveSet(ctx, markets)
		if err != nil {
			return nil, err
		}
		if !v.IsComplete || v.Confidence < s.params.ExhaustiveConfidence {
			return nil, nil
		}
		return &v, nil
	}
	if venueFlagged {
		return &domain.ExhaustiveVerification{IsComplete: true, Confidence: 1.0}, nil
	}
	return nil, nil
}
