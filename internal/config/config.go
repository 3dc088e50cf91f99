// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSCAN_* environment
// variables.
type Config struct {
	Polymarket  PolymarketConfig  `toml:"polymarket"`
	LLM         LLMConfig         `toml:"llm"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Scan        ScanConfig        `toml:"scan"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Rate        RateConfig        `toml:"rate"`
	Thresholds  ThresholdsConfig  `toml:"thresholds"`
	Strategies  StrategiesConfig  `toml:"strategies"`
	Source      SourceConfig      `toml:"source"`
	Redis       RedisConfig       `toml:"redis"`
	Postgres    PostgresConfig    `toml:"postgres"`
	S3          S3Config          `toml:"s3"`
	Feed        FeedConfig        `toml:"feed"`
	LogLevel    string            `toml:"log_level"`
}

// PolymarketConfig holds venue API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	ClobHost  string `toml:"clob_host"`
	WsHost    string `toml:"ws_host"`
}

// LLMConfig holds the analyzer model endpoint. The API is OpenAI-compatible
// chat completion; BaseURL selects the provider.
type LLMConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

// EmbeddingConfig holds the embedding model endpoint used by the clusterer.
type EmbeddingConfig struct {
	BaseURL   string   `toml:"base_url"`
	APIKey    string   `toml:"api_key"`
	Model     string   `toml:"model"`
	BatchSize int      `toml:"batch_size"`
	Timeout   duration `toml:"timeout"`
}

// ScanConfig holds the scan-level knobs.
type ScanConfig struct {
	Tags                []string `toml:"tags"`
	MarketLimit         int      `toml:"market_limit"`
	MinLiquidityUSD     float64  `toml:"min_liquidity_usd"`
	MinProfitPct        float64  `toml:"min_profit_pct"`
	MinAPY              float64  `toml:"min_apy"`
	SimilarityThreshold float64  `toml:"similarity_threshold"`
	MaxLLMCalls         int      `toml:"max_llm_calls"`
	PlanMaxAge          duration `toml:"plan_max_age"`
	TargetNotionalUSD   float64  `toml:"target_notional_usd"`
	MinDepthUSD         float64  `toml:"min_depth_usd"`
	TimeTolerance       duration `toml:"time_tolerance"`
}

// ConcurrencyConfig holds worker-pool sizes.
type ConcurrencyConfig struct {
	NSource int `toml:"n_source"`
	NEmbed  int `toml:"n_embed"`
	NLLM    int `toml:"n_llm"`
	NBook   int `toml:"n_book"`
}

// RateConfig bounds all outbound calls through one token bucket.
type RateConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ThresholdsConfig holds per-strategy detection thresholds.
type ThresholdsConfig struct {
	Mono       float64 `toml:"mono"`
	Impl       float64 `toml:"impl"`
	Equiv      float64 `toml:"equiv"`
	Exhaustive float64 `toml:"exhaustive"`
}

// StrategiesConfig selects which strategies run.
type StrategiesConfig struct {
	Enabled []string `toml:"enabled"`
}

// SourceConfig holds market-source fetch behavior. EnableFullFetch disables
// any implicit page cap; FetchMaxPerTag of 0 means unlimited. With both set,
// fetching is unlimited.
type SourceConfig struct {
	EnableFullFetch bool     `toml:"enable_full_fetch"`
	FetchMaxPerTag  int      `toml:"fetch_max_per_tag"`
	PageSize        int      `toml:"page_size"`
	CacheTTL        duration `toml:"cache_ttl"`
	MaxRetries      int      `toml:"max_retries"`
	CatalogTimeout  duration `toml:"catalog_timeout"`
	BookTimeout     duration `toml:"book_timeout"`
}

// RedisConfig holds the snapshot-cache connection. Leave Addr empty to run
// without a cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// PostgresConfig holds the report store connection. Leave DSN empty to skip
// persistence.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds report-archive object storage parameters. Leave Bucket
// empty to skip archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig controls the live orderbook feed used by the pre-flight layer.
type FeedConfig struct {
	Enabled     bool     `toml:"enabled"`
	MaxStaleAge duration `toml:"max_stale_age"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration. Every knob has a default so a
// scan can run from an empty file against the public APIs.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			ClobHost:  "https://clob.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws",
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: duration{60 * time.Second},
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			BatchSize: 64,
			Timeout:   duration{30 * time.Second},
		},
		Scan: ScanConfig{
			Tags:                []string{"crypto"},
			MarketLimit:         500,
			MinLiquidityUSD:     1000,
			MinProfitPct:        0.005,
			MinAPY:              0.15,
			SimilarityThreshold: 0.75,
			MaxLLMCalls:         100,
			PlanMaxAge:          duration{60 * time.Second},
			TargetNotionalUSD:   500,
			MinDepthUSD:         10_000,
			TimeTolerance:       duration{24 * time.Hour},
		},
		Concurrency: ConcurrencyConfig{
			NSource: 4,
			NEmbed:  4,
			NLLM:    3,
			NBook:   8,
		},
		Rate: RateConfig{
			RequestsPerSecond: 10,
		},
		Thresholds: ThresholdsConfig{
			Mono:       0.01,
			Impl:       0.90,
			Equiv:      0.90,
			Exhaustive: 0.85,
		},
		Strategies: StrategiesConfig{
			Enabled: []string{
				"monotonicity", "interval", "exhaustive",
				"implication", "equivalent", "temporal",
			},
		},
		Source: SourceConfig{
			PageSize:       100,
			CacheTTL:       duration{5 * time.Minute},
			MaxRetries:     3,
			CatalogTimeout: duration{10 * time.Second},
			BookTimeout:    duration{5 * time.Second},
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Feed: FeedConfig{
			MaxStaleAge: duration{10 * time.Second},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values that would make a scan
// meaningless or unsafe.
func (c *Config) Validate() error {
	var problems []string

	if c.Polymarket.GammaHost == "" {
		problems = append(problems, "polymarket.gamma_host is required")
	}
	if c.Polymarket.ClobHost == "" {
		problems = append(problems, "polymarket.clob_host is required")
	}
	if c.Scan.MarketLimit < 0 {
		problems = append(problems, "scan.market_limit must be >= 0")
	}
	if c.Scan.SimilarityThreshold < 0 || c.Scan.SimilarityThreshold > 1 {
		problems = append(problems, "scan.similarity_threshold must be in [0,1]")
	}
	if c.Scan.MaxLLMCalls < 0 {
		problems = append(problems, "scan.max_llm_calls must be >= 0")
	}
	if c.Rate.RequestsPerSecond <= 0 {
		problems = append(problems, "rate.requests_per_second must be > 0")
	}
	for _, p := range []struct {
		name string
		v    int
	}{
		{"concurrency.n_source", c.Concurrency.NSource},
		{"concurrency.n_embed", c.Concurrency.NEmbed},
		{"concurrency.n_llm", c.Concurrency.NLLM},
		{"concurrency.n_book", c.Concurrency.NBook},
	} {
		if p.v <= 0 {
			problems = append(problems, p.name+" must be > 0")
		}
	}
	for _, t := range []struct {
		name string
		v    float64
	}{
		{"thresholds.impl", c.Thresholds.Impl},
		{"thresholds.equiv", c.Thresholds.Equiv},
		{"thresholds.exhaustive", c.Thresholds.Exhaustive},
	} {
		if t.v < 0 || t.v > 1 {
			problems = append(problems, t.name+" must be in [0,1]")
		}
	}
	if len(c.Strategies.Enabled) == 0 {
		problems = append(problems, "strategies.enabled must name at least one strategy")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
