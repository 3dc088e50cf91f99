// Package postgres persists scan reports and accepted opportunities via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientConfig holds connection parameters for the PostgreSQL client.
type ClientConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

// Client wraps a pgxpool.Pool and manages the scanner schema.
type Client struct {
	pool *pgxpool.Pool
}

// New creates a new Client with a connection pool configured from cfg and
// verifies connectivity.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Client{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close shuts down the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS scan_reports (
	scan_id            TEXT PRIMARY KEY,
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL,
	strategies_run     TEXT[] NOT NULL,
	markets_considered INTEGER NOT NULL,
	llm_calls_used     INTEGER NOT NULL,
	rejections_summary JSONB NOT NULL,
	warnings           TEXT[] NOT NULL,
	canceled           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS opportunities (
	id               TEXT PRIMARY KEY,
	scan_id          TEXT NOT NULL REFERENCES scan_reports(scan_id),
	strategy         TEXT NOT NULL,
	legs             JSONB NOT NULL,
	cost             DOUBLE PRECISION NOT NULL,
	guaranteed_return DOUBLE PRECISION NOT NULL,
	effective_profit DOUBLE PRECISION NOT NULL,
	profit_pct       DOUBLE PRECISION NOT NULL,
	apy              DOUBLE PRECISION NOT NULL,
	apy_rating       TEXT NOT NULL,
	oracle_alignment TEXT NOT NULL,
	slippage_cost    DOUBLE PRECISION NOT NULL,
	validation_trail JSONB NOT NULL,
	payload          JSONB NOT NULL,
	discovered_at    TIMESTAMPTZ NOT NULL,
	plan_snapshot_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_scan ON opportunities(scan_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_strategy ON opportunities(strategy);
`

// EnsureSchema creates the scanner tables when they do not exist yet.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}
