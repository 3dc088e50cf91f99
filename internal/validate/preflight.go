package validate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// preflightLayer re-fetches every leg's order book immediately before
// emission and recomputes the math layer against live asks. A plan whose
// executable edge has decayed is marked stale and discarded, never emitted.
type preflightLayer struct {
	cfg    Config
	books  domain.BookSource
	nBook  int
	logger *slog.Logger
}

func (l *preflightLayer) Name() string { return "preflight" }

func (l *preflightLayer) Check(ctx context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	now := time.Now().UTC()

	if l.cfg.PlanMaxAge > 0 && now.Sub(opp.DiscoveredAt) > l.cfg.PlanMaxAge {
		return VerdictStale, fmt.Sprintf(
			"plan aged %.0fs past limit %.0fs",
			now.Sub(opp.DiscoveredAt).Seconds(), l.cfg.PlanMaxAge.Seconds())
	}

	if l.books == nil {
		// No live book source wired; accept on the discovery snapshot.
		opp.PlanSnapshotAt = now
		return VerdictPass, "no book source, snapshot prices stand"
	}

	books, err := l.fetchBooks(ctx, opp, g)
	if err != nil {
		return VerdictStale, fmt.Sprintf("book refresh failed: %v", err)
	}

	verdict, reason := runMathCheck(l.cfg, opp, g, books)
	if verdict != VerdictPass {
		// Economics that held at discovery but fail on live books mean the
		// plan expired, not that the candidate was wrong.
		return VerdictStale, reason
	}

	opp.PlanSnapshotAt = time.Now().UTC()
	return VerdictPass, reason
}

// fetchBooks pulls fresh books for every leg token with bounded parallelism.
func (l *preflightLayer) fetchBooks(ctx context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (map[string]*domain.OrderBook, error) {
	books := make(map[string]*domain.OrderBook, len(opp.Legs))
	var mu sync.Mutex

	gr, gctx := errgroup.WithContext(ctx)
	limit := l.nBook
	if limit <= 0 {
		limit = 8
	}
	gr.SetLimit(limit)

	for _, leg := range opp.Legs {
		m, ok := g.Market(leg.MarketID)
		if !ok {
			return nil, fmt.Errorf("leg market %s missing from snapshot", leg.MarketID)
		}
		tokenID := m.YesTokenID
		if leg.Side == domain.SideNo {
			tokenID = m.NoTokenID
		}
		if tokenID == "" {
			continue
		}

		gr.Go(func() error {
			book, err := l.books.FetchOrderBook(gctx, tokenID)
			if err != nil {
				return err
			}
			mu.Lock()
			books[tokenID] = &book
			mu.Unlock()
			return nil
		})
	}

	if err := gr.Wait(); err != nil {
		return nil, err
	}
	return books, nil
}
