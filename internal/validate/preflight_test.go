package validate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// fakeBooks serves canned order books per token.
type fakeBooks struct {
	books map[string]domain.OrderBook
}

func (f *fakeBooks) FetchOrderBook(_ context.Context, tokenID string) (domain.OrderBook, error) {
	if b, ok := f.books[tokenID]; ok {
		return b, nil
	}
	return domain.EmptyOrderBook(tokenID), nil
}

func deepBook(token string, ask float64) domain.OrderBook {
	return domain.OrderBook{
		TokenID:   token,
		Bids:      []domain.PriceLevel{{Price: ask - 0.02, Size: 50_000}},
		Asks:      []domain.PriceLevel{{Price: ask, Size: 50_000}},
		FetchedAt: time.Now().UTC(),
	}
}

// TestPreflightAcceptsOnFreshBooks re-fetches live books matching the
// discovery snapshot: the plan survives and gets its snapshot timestamp.
func TestPreflightAcceptsOnFreshBooks(t *testing.T) {
	opp, g := ladderScan(t, 0.30, 0.40)
	books := &fakeBooks{books: map[string]domain.OrderBook{
		"sol-110-yes": deepBook("sol-110-yes", 0.31),
		"sol-120-no":  deepBook("sol-120-no", 0.61),
	}}

	engine := NewEngine(DefaultConfig(), books, 4, slog.Default())
	engine.Validate(context.Background(), &opp, g)

	require.Equal(t, domain.OppAccepted, opp.Status, "reject: %s/%s", opp.RejectLayer, opp.RejectReason)
	assert.False(t, opp.PlanSnapshotAt.IsZero())
	assert.InDelta(t, 0.92, opp.Cost, 1e-9, "cost recomputed from live asks")
}

// TestPreflightStaleOnWidenedBooks is the staleness scenario: between
// discovery and emission the asks widen until the edge is gone. The plan
// must be marked STALE and not emitted, distinct from a rejection.
func TestPreflightStaleOnWidenedBooks(t *testing.T) {
	opp, g := ladderScan(t, 0.30, 0.40)
	books := &fakeBooks{books: map[string]domain.OrderBook{
		"sol-110-yes": deepBook("sol-110-yes", 0.34),
		"sol-120-no":  deepBook("sol-120-no", 0.66),
	}}

	engine := NewEngine(DefaultConfig(), books, 4, slog.Default())
	engine.Validate(context.Background(), &opp, g)

	assert.Equal(t, domain.OppStale, opp.Status)
	assert.Equal(t, "preflight", opp.RejectLayer)

	require.NotEmpty(t, opp.Trail)
	last := opp.Trail[len(opp.Trail)-1]
	assert.Equal(t, "preflight", last.Layer)
	assert.False(t, last.Passed)
}

// TestPreflightStaleOnThinBooks: fresh books exist but cannot absorb the
// target notional.
func TestPreflightStaleOnThinBooks(t *testing.T) {
	opp, g := ladderScan(t, 0.30, 0.40)
	thin := deepBook("sol-110-yes", 0.31)
	thin.Asks[0].Size = 100 // $31 of depth against a $500 target
	books := &fakeBooks{books: map[string]domain.OrderBook{
		"sol-110-yes": thin,
		"sol-120-no":  deepBook("sol-120-no", 0.61),
	}}

	engine := NewEngine(DefaultConfig(), books, 4, slog.Default())
	engine.Validate(context.Background(), &opp, g)

	assert.Equal(t, domain.OppStale, opp.Status)
	assert.Contains(t, opp.RejectReason, "insufficient liquidity")
}

// TestPreflightPlanAgeExpiry: a plan older than plan_max_age is stale before
// any book is fetched.
func TestPreflightPlanAgeExpiry(t *testing.T) {
	opp, g := ladderScan(t, 0.30, 0.40)
	opp.DiscoveredAt = time.Now().UTC().Add(-2 * time.Minute)

	books := &fakeBooks{books: map[string]domain.OrderBook{
		"sol-110-yes": deepBook("sol-110-yes", 0.31),
		"sol-120-no":  deepBook("sol-120-no", 0.61),
	}}
	engine := NewEngine(DefaultConfig(), books, 4, slog.Default())
	engine.Validate(context.Background(), &opp, g)

	assert.Equal(t, domain.OppStale, opp.Status)
	assert.Contains(t, opp.RejectReason, "aged")
}
