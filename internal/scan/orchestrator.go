// Package scan drives one discovery pass: it materializes the snapshot,
// computes each derived input at most once, fans strategies out over a
// bounded pool, funnels candidates through the validation engine behind a
// backpressured channel, and assembles the scan report.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/analyzer"
	"github.com/alanyoungcy/arbscan/internal/cluster"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
	"github.com/alanyoungcy/arbscan/internal/parser"
	"github.com/alanyoungcy/arbscan/internal/source"
	"github.com/alanyoungcy/arbscan/internal/strategy"
	"github.com/alanyoungcy/arbscan/internal/validate"
)

// candidateBuffer bounds the strategy→validator channel; a full buffer
// applies backpressure on producers when validation saturates.
const candidateBuffer = 64

// strategyPoolSize bounds concurrently running strategies.
const strategyPoolSize = 4

// Config holds orchestration knobs not owned by a component.
type Config struct {
	SimilarityThreshold float64
	Enabled             []string
}

// Orchestrator wires the pipeline for repeated scans. All fields are set at
// construction; a scan mutates nothing shared beyond the analyzer's memo
// cache.
type Orchestrator struct {
	src       *source.Source
	clusterer *cluster.Clusterer
	analyzer  *analyzer.Analyzer
	registry  *strategy.Registry
	engine    *validate.Engine
	cfg       Config
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. clusterer and analyzer may be nil
// when the corresponding inputs are not configured; strategies requiring
// them are skipped with a report warning.
func NewOrchestrator(
	src *source.Source,
	clusterer *cluster.Clusterer,
	az *analyzer.Analyzer,
	registry *strategy.Registry,
	engine *validate.Engine,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		src:       src,
		clusterer: clusterer,
		analyzer:  az,
		registry:  registry,
		engine:    engine,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scan")),
	}
}

// Run executes one scan. Cancellation is honored at every stage boundary;
// opportunities accepted before the cancel signal remain in the report,
// which records the scan as canceled.
func (o *Orchestrator) Run(ctx context.Context) (*domain.ScanReport, error) {
	report := &domain.ScanReport{
		ScanID:            uuid.New().String(),
		StartedAt:         time.Now().UTC(),
		RejectionsSummary: make(map[string]int),
	}
	o.logger.Info("scan starting", slog.String("scan_id", report.ScanID))

	snap, err := o.src.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", report.ScanID, err)
	}
	report.MarketsConsidered = len(snap.Markets)
	report.Warnings = append(report.Warnings, snap.Warnings...)

	strategies, skipped := o.selectStrategies()
	for _, name := range skipped {
		report.Warnings = append(report.Warnings, fmt.Sprintf("strategy %s skipped: required input unavailable", name))
	}

	g, inputWarnings, err := o.buildGraph(ctx, snap, strategies)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return o.finishCanceled(report), nil
		}
		return nil, fmt.Errorf("scan %s: %w", report.ScanID, err)
	}
	report.Warnings = append(report.Warnings, inputWarnings...)

	accepted, canceled := o.runStrategies(ctx, g, strategies, report)
	report.Opportunities = accepted
	report.Canceled = canceled
	if canceled {
		report.Warnings = append(report.Warnings, "scan canceled; accepted opportunities discovered before the signal remain valid")
	}

	if o.analyzer != nil {
		report.LLMCallsUsed = o.analyzer.CallsUsed()
	}
	report.FinishedAt = time.Now().UTC()

	o.logger.Info("scan finished",
		slog.String("scan_id", report.ScanID),
		slog.Int("accepted", len(report.Opportunities)),
		slog.Int("markets", report.MarketsConsidered),
		slog.Int("llm_calls", report.LLMCallsUsed),
		slog.Bool("canceled", report.Canceled),
	)
	return report, nil
}

// selectStrategies resolves the enabled list against the registry, dropping
// strategies whose required inputs cannot be computed in this configuration.
func (o *Orchestrator) selectStrategies() (active []strategy.Strategy, skipped []string) {
	for _, name := range o.cfg.Enabled {
		s, err := o.registry.Get(name)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		available := true
		for _, input := range s.Requires() {
			switch input {
			case graph.InputClusters:
				available = available && o.clusterer != nil
			case graph.InputLLM:
				available = available && o.analyzer != nil
			}
		}
		if !available {
			skipped = append(skipped, name)
			continue
		}
		active = append(active, s)
	}
	return active, skipped
}

// buildGraph computes each derived input required by the active strategies
// exactly once and assembles the read-only view.
func (o *Orchestrator) buildGraph(ctx context.Context, snap *source.Snapshot, strategies []strategy.Strategy) (*graph.MarketGraph, []string, error) {
	need := make(map[graph.Input]bool)
	for _, s := range strategies {
		for _, input := range s.Requires() {
			need[input] = true
		}
	}
	// Interval chains borrow threshold parses when present.
	if need[graph.InputIntervals] {
		need[graph.InputThresholds] = true
	}

	var warnings []string
	b := graph.NewBuilder(snap.Markets, snap.Events, time.Now().UTC())

	if need[graph.InputThresholds] {
		var thresholds []domain.ThresholdInfo
		ambiguous := 0
		for i := range snap.Markets {
			if t := parser.ParseThreshold(&snap.Markets[i]); t != nil {
				thresholds = append(thresholds, *t)
			} else {
				ambiguous++
			}
		}
		b.WithThresholds(thresholds)
		o.logger.Debug("threshold table built",
			slog.Int("parsed", len(thresholds)),
			slog.Int("skipped", ambiguous),
		)
	}

	if need[graph.InputIntervals] {
		var intervals []domain.IntervalInfo
		for i := range snap.Markets {
			if iv := parser.ParseInterval(&snap.Markets[i]); iv != nil {
				intervals = append(intervals, *iv)
			}
		}
		b.WithIntervals(intervals)
	}

	if need[graph.InputClusters] && o.clusterer != nil {
		clusters, err := o.clusterer.ClusterMarkets(ctx, snap.Markets, o.cfg.SimilarityThreshold)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, warnings, err
			}
			warnings = append(warnings, fmt.Sprintf("clustering failed: %v", err))
		} else {
			b.WithClusters(clusters)
		}
	}

	// The analyzer attaches whenever configured, not only when a strategy
	// declares the LLM input: the exhaustive strategy consults it
	// opportunistically, and calls are lazy and memoized either way.
	if o.analyzer != nil {
		b.WithAnalyzer(o.analyzer)
	}

	return b.Build(), warnings, nil
}

// runStrategies fans the strategies out over a bounded pool and validates
// candidates from a single consumer so dedup order is deterministic per
// arrival. Returns the accepted set and whether the scan was canceled.
func (o *Orchestrator) runStrategies(ctx context.Context, g *graph.MarketGraph, strategies []strategy.Strategy, report *domain.ScanReport) ([]domain.Opportunity, bool) {
	candidates := make(chan domain.Opportunity, candidateBuffer)

	var wg sync.WaitGroup
	producerCtx, cancelProducers := context.WithCancel(ctx)
	defer cancelProducers()

	var warnMu sync.Mutex
	pool, poolCtx := errgroup.WithContext(producerCtx)
	pool.SetLimit(strategyPoolSize)

	for _, s := range strategies {
		report.StrategiesRun = append(report.StrategiesRun, s.Name())
		wg.Add(1)
	}

	// Launch producers off the consumer goroutine: pool.Go blocks when the
	// pool is saturated, and the consumer below must already be draining
	// the channel by then.
	go func() {
		for _, s := range strategies {
			pool.Go(func() error {
				defer wg.Done()

				opps, err := s.Scan(poolCtx, g)
				if err != nil && !errors.Is(err, context.Canceled) {
					warnMu.Lock()
					if errors.Is(err, domain.ErrBudgetExhausted) {
						report.Warnings = append(report.Warnings,
							fmt.Sprintf("strategy %s: analyzer budget exhausted, remaining pairs skipped", s.Name()))
					} else {
						report.Warnings = append(report.Warnings,
							fmt.Sprintf("strategy %s failed: %v", s.Name(), err))
					}
					warnMu.Unlock()
				}

				for i := range opps {
					select {
					case candidates <- opps[i]:
					case <-poolCtx.Done():
						return nil
					}
				}
				return nil
			})
		}
		wg.Wait()
		close(candidates)
	}()

	dedup := NewDedup()
	var accepted []domain.Opportunity
	canceled := false

	for opp := range candidates {
		if ctx.Err() != nil {
			canceled = true
			cancelProducers()
			// Drain remaining candidates without validating them.
			continue
		}
		if dedup.IsDuplicate(&opp) {
			continue
		}

		o.engine.Validate(ctx, &opp, g)
		switch opp.Status {
		case domain.OppAccepted:
			accepted = append(accepted, opp)
		case domain.OppStale:
			report.RejectionsSummary["stale"]++
		default:
			report.RejectionsSummary[opp.RejectLayer]++
		}
	}

	if ctx.Err() != nil {
		canceled = true
	}
	return accepted, canceled
}

func (o *Orchestrator) finishCanceled(report *domain.ScanReport) *domain.ScanReport {
	report.Canceled = true
	report.FinishedAt = time.Now().UTC()
	report.Warnings = append(report.Warnings, "scan canceled during input computation")
	return report
}
