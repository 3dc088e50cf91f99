package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// ScanStore persists scan reports and their accepted opportunities in one
// transaction per report.
type ScanStore struct {
	client *Client
}

// NewScanStore creates a ScanStore backed by the given Client.
func NewScanStore(c *Client) *ScanStore {
	return &ScanStore{client: c}
}

// SaveReport writes the report row and one row per accepted opportunity.
func (s *ScanStore) SaveReport(ctx context.Context, report *domain.ScanReport) error {
	rejections, err := json.Marshal(report.RejectionsSummary)
	if err != nil {
		return fmt.Errorf("postgres: marshal rejections for scan %s: %w", report.ScanID, err)
	}

	tx, err := s.client.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save scan %s: %w", report.ScanID, err)
	}
	defer tx.Rollback(ctx)

	warnings := report.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	strategies := report.StrategiesRun
	if strategies == nil {
		strategies = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scan_reports (
			scan_id, started_at, finished_at, strategies_run,
			markets_considered, llm_calls_used, rejections_summary,
			warnings, canceled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (scan_id) DO NOTHING`,
		report.ScanID, report.StartedAt, report.FinishedAt, strategies,
		report.MarketsConsidered, report.LLMCallsUsed, rejections,
		warnings, report.Canceled,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert scan %s: %w", report.ScanID, err)
	}

	for i := range report.Opportunities {
		opp := &report.Opportunities[i]

		legs, err := json.Marshal(opp.Legs)
		if err != nil {
			return fmt.Errorf("postgres: marshal legs for opportunity %s: %w", opp.ID, err)
		}
		trail, err := json.Marshal(opp.Trail)
		if err != nil {
			return fmt.Errorf("postgres: marshal trail for opportunity %s: %w", opp.ID, err)
		}
		payload, err := json.Marshal(opp)
		if err != nil {
			return fmt.Errorf("postgres: marshal opportunity %s: %w", opp.ID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO opportunities (
				id, scan_id, strategy, legs, cost, guaranteed_return,
				effective_profit, profit_pct, apy, apy_rating,
				oracle_alignment, slippage_cost, validation_trail,
				payload, discovered_at, plan_snapshot_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO NOTHING`,
			opp.ID, report.ScanID, string(opp.Strategy), legs, opp.Cost,
			opp.GuaranteedReturn, opp.EffectiveProfit, opp.ProfitPct,
			opp.APY, string(opp.APYRating), string(opp.OracleAlignment),
			opp.SlippageCost, trail, payload, opp.DiscoveredAt, opp.PlanSnapshotAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit scan %s: %w", report.ScanID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ScanStore = (*ScanStore)(nil)
