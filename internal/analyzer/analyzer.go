// Package analyzer classifies the logical relation between markets using an
// LLM, with memoization, a per-scan call budget, and a consistency check
// that downgrades self-contradicting verdicts.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/platform/openai"
)

// ChatClient completes one prompt. The model binding lives in the adapter so
// the analyzer stays testable without network access.
type ChatClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Analyzer wraps the chat client with budget accounting, a worker-pool
// bound, and a single-writer memoization cache keyed by the ordered market
// pair and the prompt version.
type Analyzer struct {
	chat     ChatClient
	maxCalls int
	nWorkers int
	logger   *slog.Logger

	used atomic.Int64
	sem  chan struct{}

	mu   sync.RWMutex
	memo map[string]domain.RelationshipAnalysis
}

// New creates an Analyzer. maxCalls caps LLM calls per scan; nWorkers bounds
// concurrent calls.
func New(chat ChatClient, maxCalls, nWorkers int, logger *slog.Logger) *Analyzer {
	if nWorkers <= 0 {
		nWorkers = 3
	}
	return &Analyzer{
		chat:     chat,
		maxCalls: maxCalls,
		nWorkers: nWorkers,
		logger:   logger.With(slog.String("component", "analyzer")),
		sem:      make(chan struct{}, nWorkers),
		memo:     make(map[string]domain.RelationshipAnalysis),
	}
}

// CallsUsed returns the number of LLM calls spent so far this scan.
func (a *Analyzer) CallsUsed() int {
	return int(a.used.Load())
}

// AnalyzePair classifies the relation between two markets. The verdict is
// memoized per ordered pair; a repeat query costs nothing. When the budget
// is exhausted the error wraps domain.ErrBudgetExhausted and the caller
// skips the pair.
func (a *Analyzer) AnalyzePair(ctx context.Context, ma, mb *domain.Market) (domain.RelationshipAnalysis, error) {
	key := memoKey(ma.ID, mb.ID)
	swapped := key != ma.ID+"|"+mb.ID+"|"+Version

	a.mu.RLock()
	cached, ok := a.memo[key]
	a.mu.RUnlock()
	if ok {
		return orient(cached, swapped), nil
	}

	if !a.reserveCall() {
		return domain.RelationshipAnalysis{}, fmt.Errorf("analyzer: pair %s/%s: %w", ma.ID, mb.ID, domain.ErrBudgetExhausted)
	}

	lo, hi := ma, mb
	if swapped {
		lo, hi = mb, ma
	}

	result := a.analyzeOnce(ctx, lo, hi)
	result = checkConsistency(result)

	// Single-writer discipline: compute once, insert once. A racing second
	// computation for the same key is wasted work, not corruption.
	a.mu.Lock()
	if existing, ok := a.memo[key]; ok {
		result = existing
	} else {
		a.memo[key] = result
	}
	a.mu.Unlock()

	return orient(result, swapped), nil
}

// VerifyExhaustiveSet asks whether the markets are mutually exclusive and
// collectively exhaustive. Budget-counted like pair analysis.
func (a *Analyzer) VerifyExhaustiveSet(ctx context.Context, markets []domain.Market) (domain.ExhaustiveVerification, error) {
	if len(markets) < 2 {
		return domain.ExhaustiveVerification{}, fmt.Errorf("analyzer: exhaustive set needs at least 2 markets")
	}
	if !a.reserveCall() {
		return domain.ExhaustiveVerification{}, fmt.Errorf("analyzer: exhaustive set: %w", domain.ErrBudgetExhausted)
	}

	raw, err := a.complete(ctx, exhaustivePrompt(markets))
	if err != nil {
		return domain.ExhaustiveVerification{}, fmt.Errorf("analyzer: exhaustive set: %w", err)
	}

	var v domain.ExhaustiveVerification
	payload := openai.ExtractJSON(raw)
	if payload == "" || json.Unmarshal([]byte(payload), &v) != nil {
		return domain.ExhaustiveVerification{}, fmt.Errorf("analyzer: exhaustive set: %w", domain.ErrAnalyzerParse)
	}
	return v, nil
}

// analyzeOnce runs the pair prompt with one retry on parse failure. Repeated
// failure degrades to INDEPENDENT with zero confidence rather than erroring:
// an unclassifiable pair is simply not a candidate.
func (a *Analyzer) analyzeOnce(ctx context.Context, lo, hi *domain.Market) domain.RelationshipAnalysis {
	prompt := pairPrompt(lo, hi)

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := a.complete(ctx, prompt)
		if err != nil {
			a.logger.Warn("pair analysis call failed",
				slog.String("market_a", lo.ID),
				slog.String("market_b", hi.ID),
				slog.String("error", err.Error()),
			)
			return domain.Independent("analysis call failed")
		}

		if result, ok := parseAnalysis(raw); ok {
			return result
		}
		a.logger.Debug("pair analysis parse failure, retrying",
			slog.String("market_a", lo.ID),
			slog.String("market_b", hi.ID),
		)
	}
	return domain.Independent("parse_failure")
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-a.sem }()

	return a.chat.Complete(ctx, systemPrompt, prompt)
}

// reserveCall atomically claims one unit of budget.
func (a *Analyzer) reserveCall() bool {
	if a.maxCalls <= 0 {
		a.used.Add(1)
		return true
	}
	for {
		cur := a.used.Load()
		if cur >= int64(a.maxCalls) {
			return false
		}
		if a.used.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// rawAnalysis mirrors the model's JSON shape before relation normalization.
type rawAnalysis struct {
	Relation             string   `json:"relation"`
	Confidence           float64  `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	EdgeCases            []string `json:"edge_cases"`
	ResolutionCompatible bool     `json:"resolution_compatible"`
}

func parseAnalysis(raw string) (domain.RelationshipAnalysis, bool) {
	payload := openai.ExtractJSON(raw)
	if payload == "" {
		return domain.RelationshipAnalysis{}, false
	}
	var r rawAnalysis
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return domain.RelationshipAnalysis{}, false
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return domain.RelationshipAnalysis{}, false
	}
	return domain.RelationshipAnalysis{
		Relation:             domain.ParseRelationType(r.Relation),
		Confidence:           r.Confidence,
		Reasoning:            r.Reasoning,
		EdgeCases:            r.EdgeCases,
		ResolutionCompatible: r.ResolutionCompatible,
	}, true
}

// memoKey orders the pair so (A,B) and (B,A) share one cache entry.
func memoKey(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return idA + "|" + idB + "|" + Version
}

// orient flips the implication direction when the caller's pair order is the
// reverse of the memoized order.
func orient(r domain.RelationshipAnalysis, swapped bool) domain.RelationshipAnalysis {
	if !swapped {
		return r
	}
	switch r.Relation {
	case domain.RelationImpliesAB:
		r.Relation = domain.RelationImpliesBA
	case domain.RelationImpliesBA:
		r.Relation = domain.RelationImpliesAB
	}
	return r
}
