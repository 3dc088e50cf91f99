package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSCAN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "ARBSCAN_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "ARBSCAN_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "ARBSCAN_POLYMARKET_WS_HOST")

	// ── LLM / embedding ──
	setStr(&cfg.LLM.BaseURL, "ARBSCAN_LLM_BASE_URL")
	setStr(&cfg.LLM.APIKey, "ARBSCAN_LLM_API_KEY")
	setStr(&cfg.LLM.Model, "ARBSCAN_LLM_MODEL")
	setStr(&cfg.Embedding.BaseURL, "ARBSCAN_EMBEDDING_BASE_URL")
	setStr(&cfg.Embedding.APIKey, "ARBSCAN_EMBEDDING_API_KEY")
	setStr(&cfg.Embedding.Model, "ARBSCAN_EMBEDDING_MODEL")
	setInt(&cfg.Embedding.BatchSize, "ARBSCAN_EMBEDDING_BATCH_SIZE")

	// ── Scan ──
	setStrSlice(&cfg.Scan.Tags, "ARBSCAN_SCAN_TAGS")
	setInt(&cfg.Scan.MarketLimit, "ARBSCAN_SCAN_MARKET_LIMIT")
	setFloat64(&cfg.Scan.MinLiquidityUSD, "ARBSCAN_SCAN_MIN_LIQUIDITY_USD")
	setFloat64(&cfg.Scan.MinProfitPct, "ARBSCAN_SCAN_MIN_PROFIT_PCT")
	setFloat64(&cfg.Scan.MinAPY, "ARBSCAN_SCAN_MIN_APY")
	setFloat64(&cfg.Scan.SimilarityThreshold, "ARBSCAN_SCAN_SIMILARITY_THRESHOLD")
	setInt(&cfg.Scan.MaxLLMCalls, "ARBSCAN_SCAN_MAX_LLM_CALLS")
	setDuration(&cfg.Scan.PlanMaxAge, "ARBSCAN_SCAN_PLAN_MAX_AGE")
	setFloat64(&cfg.Scan.TargetNotionalUSD, "ARBSCAN_SCAN_TARGET_NOTIONAL_USD")
	setFloat64(&cfg.Scan.MinDepthUSD, "ARBSCAN_SCAN_MIN_DEPTH_USD")
	setDuration(&cfg.Scan.TimeTolerance, "ARBSCAN_SCAN_TIME_TOLERANCE")

	// ── Concurrency / rate ──
	setInt(&cfg.Concurrency.NSource, "ARBSCAN_CONCURRENCY_N_SOURCE")
	setInt(&cfg.Concurrency.NEmbed, "ARBSCAN_CONCURRENCY_N_EMBED")
	setInt(&cfg.Concurrency.NLLM, "ARBSCAN_CONCURRENCY_N_LLM")
	setInt(&cfg.Concurrency.NBook, "ARBSCAN_CONCURRENCY_N_BOOK")
	setFloat64(&cfg.Rate.RequestsPerSecond, "ARBSCAN_RATE_REQUESTS_PER_SECOND")

	// ── Thresholds ──
	setFloat64(&cfg.Thresholds.Mono, "ARBSCAN_THRESHOLDS_MONO")
	setFloat64(&cfg.Thresholds.Impl, "ARBSCAN_THRESHOLDS_IMPL")
	setFloat64(&cfg.Thresholds.Equiv, "ARBSCAN_THRESHOLDS_EQUIV")
	setFloat64(&cfg.Thresholds.Exhaustive, "ARBSCAN_THRESHOLDS_EXHAUSTIVE")
	setStrSlice(&cfg.Strategies.Enabled, "ARBSCAN_STRATEGIES_ENABLED")

	// ── Source ──
	setBool(&cfg.Source.EnableFullFetch, "ARBSCAN_SOURCE_ENABLE_FULL_FETCH")
	setInt(&cfg.Source.FetchMaxPerTag, "ARBSCAN_SOURCE_FETCH_MAX_PER_TAG")
	setInt(&cfg.Source.PageSize, "ARBSCAN_SOURCE_PAGE_SIZE")
	setDuration(&cfg.Source.CacheTTL, "ARBSCAN_SOURCE_CACHE_TTL")
	setInt(&cfg.Source.MaxRetries, "ARBSCAN_SOURCE_MAX_RETRIES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSCAN_REDIS_DB")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBSCAN_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBSCAN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBSCAN_POSTGRES_POOL_MIN_CONNS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ARBSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "ARBSCAN_S3_FORCE_PATH_STYLE")

	// ── Feed / logging ──
	setBool(&cfg.Feed.Enabled, "ARBSCAN_FEED_ENABLED")
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStrSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
