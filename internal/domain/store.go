package domain

import (
	"context"
	"time"
)

// BookSource fetches a fresh orderbook for a token. Implementations retry
// transient failures internally and return EmptyOrderBook after exhaustion.
// Book reads are never cached across a plan lifetime.
type BookSource interface {
	FetchOrderBook(ctx context.Context, tokenID string) (OrderBook, error)
}

// SnapshotCache serves market-catalog snapshots keyed by tag set. Snapshots
// may be served while younger than the configured TTL.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, key string) ([]Market, bool, error)
	PutSnapshot(ctx context.Context, key string, markets []Market, ttl time.Duration) error
}

// ScanStore persists scan reports and their accepted opportunities.
type ScanStore interface {
	SaveReport(ctx context.Context, report *ScanReport) error
}

// ReportArchiver writes a finished report to cold object storage.
type ReportArchiver interface {
	Archive(ctx context.Context, report *ScanReport) error
}
