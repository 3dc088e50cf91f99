package app

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/arbscan/internal/analyzer"
	s3blob "github.com/alanyoungcy/arbscan/internal/blob/s3"
	redisCache "github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/cluster"
	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/feed"
	"github.com/alanyoungcy/arbscan/internal/platform/openai"
	"github.com/alanyoungcy/arbscan/internal/platform/polymarket"
	"github.com/alanyoungcy/arbscan/internal/ratelimit"
	"github.com/alanyoungcy/arbscan/internal/scan"
	"github.com/alanyoungcy/arbscan/internal/source"
	"github.com/alanyoungcy/arbscan/internal/store/postgres"
	"github.com/alanyoungcy/arbscan/internal/strategy"
	"github.com/alanyoungcy/arbscan/internal/validate"
)

// Deps bundles the wired components one scan run needs.
type Deps struct {
	Orchestrator *scan.Orchestrator
	Feed         *feed.BookFeed
	Store        domain.ScanStore
	Archiver     domain.ReportArchiver
}

// Wire builds the dependency graph from configuration. Optional backends
// (redis, postgres, s3, the websocket feed, the LLM and embedding clients)
// are wired only when configured; the scan degrades gracefully without them.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	limiter := ratelimit.New(cfg.Rate.RequestsPerSecond)

	gamma := polymarket.NewGammaClient(
		cfg.Polymarket.GammaHost,
		cfg.Source.CatalogTimeout.Duration,
		limiter,
		cfg.Source.MaxRetries,
	)
	clob := polymarket.NewClobClient(
		cfg.Polymarket.ClobHost,
		cfg.Source.BookTimeout.Duration,
		limiter,
		cfg.Source.MaxRetries,
	)

	// Snapshot cache is optional.
	var snapshotCache domain.SnapshotCache
	if cfg.Redis.Addr != "" {
		rdb, err := redisCache.New(ctx, redisCache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			logger.Warn("redis unavailable, running without snapshot cache",
				slog.String("error", err.Error()))
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			snapshotCache = redisCache.NewSnapshotCache(rdb)
		}
	}

	// Live book feed wraps the REST book source when enabled.
	var books domain.BookSource = clob
	var bookFeed *feed.BookFeed
	if cfg.Feed.Enabled && cfg.Polymarket.WsHost != "" {
		bookFeed = feed.NewBookFeed(cfg.Polymarket.WsHost, clob, cfg.Feed.MaxStaleAge.Duration, logger)
		books = bookFeed
	}

	src := source.New(gamma, books, snapshotCache, source.Config{
		Tags:            cfg.Scan.Tags,
		Active:          true,
		MarketLimit:     cfg.Scan.MarketLimit,
		PageSize:        cfg.Source.PageSize,
		NSource:         cfg.Concurrency.NSource,
		EnableFullFetch: cfg.Source.EnableFullFetch,
		FetchMaxPerTag:  cfg.Source.FetchMaxPerTag,
		CacheTTL:        cfg.Source.CacheTTL.Duration,
	}, logger)
	if bookFeed != nil {
		src.SetSubscriber(bookFeed)
	}

	// Clusterer needs an embedding endpoint.
	var clusterer *cluster.Clusterer
	if cfg.Embedding.APIKey != "" {
		embedClient := openai.NewClient(
			cfg.Embedding.BaseURL, cfg.Embedding.APIKey,
			cfg.Embedding.Timeout.Duration, limiter,
		)
		clusterer = cluster.New(
			&embedderAdapter{client: embedClient, model: cfg.Embedding.Model},
			cfg.Embedding.BatchSize,
			cfg.Concurrency.NEmbed,
			logger,
		)
	}

	// Analyzer needs a chat endpoint.
	var az *analyzer.Analyzer
	if cfg.LLM.APIKey != "" {
		chatClient := openai.NewClient(
			cfg.LLM.BaseURL, cfg.LLM.APIKey,
			cfg.LLM.Timeout.Duration, limiter,
		)
		az = analyzer.New(
			&chatAdapter{client: chatClient, model: cfg.LLM.Model},
			cfg.Scan.MaxLLMCalls,
			cfg.Concurrency.NLLM,
			logger,
		)
	}

	params := strategy.Params{
		MonoTolerance:        cfg.Thresholds.Mono,
		ImplConfidence:       cfg.Thresholds.Impl,
		ImplGap:              0.02,
		EquivConfidence:      cfg.Thresholds.Equiv,
		EquivGap:             0.03,
		ExhaustiveConfidence: cfg.Thresholds.Exhaustive,
		ExhaustiveEpsilon:    0.02,
		ProfitEpsilon:        cfg.Scan.MinProfitPct,
		TimeTolerance:        cfg.Scan.TimeTolerance.Duration,
	}

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewMonotonicity(params, logger))
	registry.Register(strategy.NewInterval(params, logger))
	registry.Register(strategy.NewExhaustive(params, logger))
	registry.Register(strategy.NewImplication(params, logger))
	registry.Register(strategy.NewEquivalent(params, logger))
	registry.Register(strategy.NewTemporal(params, logger))

	engine := validate.NewEngine(validate.Config{
		ProfitEpsilon:     cfg.Scan.MinProfitPct,
		ExecEpsilon:       0.002,
		TargetNotionalUSD: cfg.Scan.TargetNotionalUSD,
		MinDepthUSD:       cfg.Scan.MinDepthUSD,
		DepthPriceBand:    0.05,
		MinLiquidityUSD:   cfg.Scan.MinLiquidityUSD,
		MinAPY:            cfg.Scan.MinAPY,
		TimeTolerance:     cfg.Scan.TimeTolerance.Duration,
		PlanMaxAge:        cfg.Scan.PlanMaxAge.Duration,
	}, books, cfg.Concurrency.NBook, logger)

	orchestrator := scan.NewOrchestrator(src, clusterer, az, registry, engine, scan.Config{
		SimilarityThreshold: cfg.Scan.SimilarityThreshold,
		Enabled:             cfg.Strategies.Enabled,
	}, logger)

	deps := &Deps{
		Orchestrator: orchestrator,
		Feed:         bookFeed,
	}

	if cfg.Postgres.DSN != "" {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			logger.Warn("postgres unavailable, reports will not be persisted",
				slog.String("error", err.Error()))
		} else {
			closers = append(closers, pg.Close)
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Warn("schema bootstrap failed", slog.String("error", err.Error()))
			} else {
				deps.Store = postgres.NewScanStore(pg)
			}
		}
	}

	if cfg.S3.Bucket != "" {
		s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			logger.Warn("s3 unavailable, reports will not be archived",
				slog.String("error", err.Error()))
		} else {
			deps.Archiver = s3blob.NewReportArchiver(s3c)
		}
	}

	return deps, cleanup, nil
}

// embedderAdapter binds the embedding model name onto the generic client.
type embedderAdapter struct {
	client *openai.Client
	model  string
}

func (e *embedderAdapter) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return e.client.Embed(ctx, e.model, texts)
}

// chatAdapter binds the chat model name onto the generic client.
type chatAdapter struct {
	client *openai.Client
	model  string
}

func (c *chatAdapter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.client.Complete(ctx, c.model, system, prompt)
}
