// Package source materializes a snapshot of the venue's markets, bounded to
// a tag set. Catalog pages are fetched with bounded parallelism and may be
// served from a TTL cache; order books are always fetched fresh.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/platform/polymarket"
)

// Config holds fetch behavior for one Source.
type Config struct {
	Tags            []string
	Active          bool
	MarketLimit     int
	PageSize        int
	NSource         int
	EnableFullFetch bool
	FetchMaxPerTag  int
	CacheTTL        time.Duration
}

// Snapshot is the result of one catalog materialization. Markets preserve
// the venue's event grouping order; Warnings records skipped records.
type Snapshot struct {
	Markets   []domain.Market
	Events    map[string]domain.Event
	Warnings  []string
	FromCache bool
	FetchedAt time.Time
}

// BookSubscriber is notified of the snapshot's token set, letting a live
// book feed warm up before pre-flight asks for books.
type BookSubscriber interface {
	Subscribe(assetIDs []string)
}

// Source fetches the market catalog from the Gamma API and order books from
// the CLOB API.
type Source struct {
	gamma      *polymarket.GammaClient
	books      domain.BookSource
	cache      domain.SnapshotCache
	subscriber BookSubscriber
	cfg        Config
	logger     *slog.Logger
}

// New creates a Source. cache may be nil to disable snapshot caching.
func New(gamma *polymarket.GammaClient, books domain.BookSource, cache domain.SnapshotCache, cfg Config, logger *slog.Logger) *Source {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.NSource <= 0 {
		cfg.NSource = 4
	}
	return &Source{
		gamma:  gamma,
		books:  books,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "source")),
	}
}

// SetSubscriber registers a live-book subscriber to notify on each snapshot.
func (s *Source) SetSubscriber(sub BookSubscriber) {
	s.subscriber = sub
}

// CacheKey identifies a snapshot by its sorted tag set and activity filter.
func (s *Source) CacheKey() string {
	tags := append([]string(nil), s.cfg.Tags...)
	sort.Strings(tags)
	key := strings.Join(tags, ",")
	if s.cfg.Active {
		key += "|active"
	}
	return key
}

// ListMarkets materializes the snapshot for the configured tag set. A cached
// snapshot younger than the TTL is served directly. Fails with an error
// wrapping domain.ErrSourceUnavailable only when the venue stays unreachable
// through retries; malformed records are skipped with a warning.
func (s *Source) ListMarkets(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		if cached, ok, err := s.cache.GetSnapshot(ctx, s.CacheKey()); err != nil {
			s.logger.Warn("snapshot cache read failed", slog.String("error", err.Error()))
		} else if ok {
			s.logger.Info("serving snapshot from cache", slog.Int("markets", len(cached)))
			s.notifySubscriber(cached)
			return &Snapshot{
				Markets:   cached,
				Events:    groupEvents(cached),
				FromCache: true,
				FetchedAt: time.Now().UTC(),
			}, nil
		}
	}

	snap, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	s.notifySubscriber(snap.Markets)

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cache.PutSnapshot(ctx, s.CacheKey(), snap.Markets, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("snapshot cache write failed", slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// FetchOrderBook returns a fresh book for the token. Never cached: staleness
// here is a correctness bug, not a cost optimization.
func (s *Source) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	return s.books.FetchOrderBook(ctx, tokenID)
}

// FetchTags returns the venue tag catalog.
func (s *Source) FetchTags(ctx context.Context) ([]domain.TagInfo, error) {
	return s.gamma.GetTags(ctx)
}

// fetchAll pulls events for every configured tag, fetching up to NSource
// tags in parallel. Pages within one tag are requested one after another,
// so a single-tag snapshot has one page request in flight at a time.
func (s *Source) fetchAll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Events:    make(map[string]domain.Event),
		FetchedAt: time.Now().UTC(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.NSource)

	tags := s.cfg.Tags
	if len(tags) == 0 {
		tags = []string{""}
	}

	for _, tag := range tags {
		g.Go(func() error {
			markets, events, warnings, err := s.fetchTag(gctx, tag)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			snap.Markets = append(snap.Markets, markets...)
			for id, ev := range events {
				snap.Events[id] = ev
			}
			snap.Warnings = append(snap.Warnings, warnings...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("source: fetch markets: %w", err)
	}

	snap.Markets = dedupeMarkets(snap.Markets)
	if s.cfg.MarketLimit > 0 && len(snap.Markets) > s.cfg.MarketLimit {
		snap.Markets = snap.Markets[:s.cfg.MarketLimit]
	}

	s.logger.Info("snapshot fetched",
		slog.Int("markets", len(snap.Markets)),
		slog.Int("events", len(snap.Events)),
		slog.Int("warnings", len(snap.Warnings)),
	)
	return snap, nil
}

// fetchTag pages through /events for one tag until a short page, the per-tag
// cap, or the context ends. enable_full_fetch disables the implicit cap;
// fetch_max_per_tag of 0 means unlimited; with both set, fetching is
// unlimited.
func (s *Source) fetchTag(ctx context.Context, tag string) ([]domain.Market, map[string]domain.Event, []string, error) {
	var (
		markets  []domain.Market
		warnings []string
	)
	events := make(map[string]domain.Event)

	maxMarkets := s.cfg.FetchMaxPerTag
	if s.cfg.EnableFullFetch {
		maxMarkets = 0
	}

	badPages := 0
	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.gamma.GetEventsPage(ctx, tag, s.cfg.PageSize, offset)
		if err != nil {
			if errors.Is(err, domain.ErrSourceFormat) {
				// Malformed page: skip it and keep paging, but give up on
				// the tag when the feed is persistently garbage.
				warnings = append(warnings, fmt.Sprintf("tag %q offset %d: %v", tag, offset, err))
				if badPages++; badPages >= 3 {
					break
				}
				continue
			}
			return nil, nil, nil, err
		}

		for i := range page {
			ev := &page[i]
			dev := ev.ToDomainEvent()
			events[dev.ID] = dev

			for j := range ev.Markets {
				dm, err := ev.Markets[j].ToDomainMarket()
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("market %s: %v", ev.Markets[j].ID, err))
					continue
				}
				dm.EventID = ev.ID
				dm.EventTitle = ev.Title
				if dm.Rules == "" {
					dm.Rules = ev.Description
				}
				for _, t := range ev.Tags {
					dm.Tags = append(dm.Tags, t.Slug)
				}
				markets = append(markets, dm)
			}
		}

		if maxMarkets > 0 && len(markets) >= maxMarkets {
			markets = markets[:maxMarkets]
			break
		}
		if len(page) < s.cfg.PageSize {
			break
		}
	}

	return markets, events, warnings, nil
}

// notifySubscriber hands the snapshot's token set to the live book feed.
func (s *Source) notifySubscriber(markets []domain.Market) {
	if s.subscriber == nil {
		return
	}
	tokens := make([]string, 0, len(markets)*2)
	for i := range markets {
		if markets[i].YesTokenID != "" {
			tokens = append(tokens, markets[i].YesTokenID)
		}
		if markets[i].NoTokenID != "" {
			tokens = append(tokens, markets[i].NoTokenID)
		}
	}
	s.subscriber.Subscribe(tokens)
}

func groupEvents(markets []domain.Market) map[string]domain.Event {
	events := make(map[string]domain.Event)
	for i := range markets {
		m := &markets[i]
		if m.EventID == "" {
			continue
		}
		ev := events[m.EventID]
		ev.ID = m.EventID
		ev.Title = m.EventTitle
		if ev.Description == "" {
			ev.Description = m.Rules
		}
		ev.Markets = append(ev.Markets, m.ID)
		events[m.EventID] = ev
	}
	return events
}

func dedupeMarkets(markets []domain.Market) []domain.Market {
	seen := make(map[string]struct{}, len(markets))
	out := markets[:0]
	for _, m := range markets {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
