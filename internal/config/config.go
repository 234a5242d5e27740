package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Fallback   FallbackConfig   `yaml:"fallback" mapstructure:"fallback"`
	Chat       ChatConfig       `yaml:"chat" mapstructure:"chat"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Worker     WorkerConfig     `yaml:"worker" mapstructure:"worker"`
	Query      QueryConfig      `yaml:"query" mapstructure:"query"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence collaborator. URL scheme selects
// the backend: postgres:// uses pgx, anything else opens SQLite.
type StoreConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	ServiceKey string `yaml:"service_key" mapstructure:"service_key"`
}

// SearchConfig holds the primary web search-and-scrape provider settings.
// An empty APIKey disables the provider; the pipeline then runs on the
// fallback alone.
type SearchConfig struct {
	APIKey            string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ScrapeTimeoutSecs int    `yaml:"scrape_timeout_secs" mapstructure:"scrape_timeout_secs"`
}

// FallbackConfig holds the AI fallback search provider settings.
type FallbackConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ChatConfig holds the chat model used for extraction and analysis.
type ChatConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EmbeddingsConfig holds the embedding service used for semantic dedup.
// Optional: an empty BaseURL disables semantic dedup entirely.
type EmbeddingsConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Model        string `yaml:"model" mapstructure:"model"`
	CacheTTLMins int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// RedisConfig holds the optional embedding-cache backend.
type RedisConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// QueueConfig selects and configures the job queue backend.
type QueueConfig struct {
	Backend          string `yaml:"backend" mapstructure:"backend"` // "inline" or "temporal"
	TemporalHostPort string `yaml:"temporal_host_port" mapstructure:"temporal_host_port"`
	TemporalNS       string `yaml:"temporal_namespace" mapstructure:"temporal_namespace"`
	TaskQueue        string `yaml:"task_queue" mapstructure:"task_queue"`
}

// WorkerConfig controls the discovery worker pool and pacing.
type WorkerConfig struct {
	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs      int `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	WallclockSecs    int `yaml:"wallclock_secs" mapstructure:"wallclock_secs"`
	SearchInterCall  int `yaml:"search_inter_call_ms" mapstructure:"search_inter_call_ms"`
	QueryInterCall   int `yaml:"query_inter_call_ms" mapstructure:"query_inter_call_ms"`
	DrainTimeoutSecs int `yaml:"drain_timeout_secs" mapstructure:"drain_timeout_secs"`
}

// QueryConfig configures the query builder.
type QueryConfig struct {
	LadderFile string `yaml:"ladder_file" mapstructure:"ladder_file"`
}

// ScoringConfig configures relevance scoring and dedup thresholds.
type ScoringConfig struct {
	RelevanceThreshold int     `yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
	SemanticThreshold  float64 `yaml:"semantic_threshold" mapstructure:"semantic_threshold"`
	MaxResults         int     `yaml:"max_results" mapstructure:"max_results"`
}

// EnrichmentConfig configures the on-demand enrichment path.
type EnrichmentConfig struct {
	CrawlDepth     int `yaml:"crawl_depth" mapstructure:"crawl_depth"`
	MaxContextLen  int `yaml:"max_context_len" mapstructure:"max_context_len"`
	SocialProbeMax int `yaml:"social_probe_max" mapstructure:"social_probe_max"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures the background health checker.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StuckPendingMins     int     `yaml:"stuck_pending_mins" mapstructure:"stuck_pending_mins"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// PricingConfig holds per-provider pricing rates used for run spend
// accounting.
type PricingConfig struct {
	Chat       map[string]ModelPricing `yaml:"chat" mapstructure:"chat"`
	Fallback   PerQueryPricing         `yaml:"fallback" mapstructure:"fallback"`
	Search     PerRequestPricing       `yaml:"search" mapstructure:"search"`
	Embeddings PerMTokPricing          `yaml:"embeddings" mapstructure:"embeddings"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerQueryPricing is a flat USD rate per query.
type PerQueryPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// PerRequestPricing is a flat USD rate per API request.
type PerRequestPricing struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// PerMTokPricing is a USD rate per million tokens.
type PerMTokPricing struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// NotionConfig holds the review-database publishing settings.
type NotionConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	CompetitorDB string  `yaml:"competitor_db" mapstructure:"competitor_db"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The deployment environment names these variables without the prefix;
	// bind them explicitly so both spellings work.
	for key, env := range map[string]string{
		"search.api_key":           "PRIMARY_SEARCH_API_KEY",
		"fallback.api_key":         "FALLBACK_SEARCH_API_KEY",
		"chat.api_key":             "CHAT_MODEL_API_KEY",
		"embeddings.api_key":       "EMBEDDINGS_API_KEY",
		"embeddings.base_url":      "EMBEDDINGS_BASE_URL",
		"redis.addr":               "REDIS_ADDR",
		"queue.backend":            "QUEUE_BACKEND",
		"queue.temporal_host_port": "TEMPORAL_HOST_PORT",
		"queue.temporal_namespace": "TEMPORAL_NAMESPACE",
		"queue.task_queue":         "TEMPORAL_TASK_QUEUE",
		"store.url":                "STORAGE_URL",
		"store.service_key":        "STORAGE_SERVICE_KEY",
		"worker.concurrency":       "WORKER_CONCURRENCY",
		"worker.max_attempts":      "JOB_MAX_ATTEMPTS",
		"worker.wallclock_secs":    "JOB_WALLCLOCK_SECONDS",
		"worker.search_inter_call_ms": "SEARCH_INTER_CALL_MS",
		"worker.query_inter_call_ms":  "QUERY_INTER_CALL_MS",
		"notion.token":                "NOTION_TOKEN",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("search.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("search.scrape_timeout_secs", 60)
	v.SetDefault("fallback.base_url", "https://api.perplexity.ai")
	v.SetDefault("fallback.model", "sonar-pro")
	v.SetDefault("fallback.timeout_secs", 45)
	v.SetDefault("chat.model", "claude-haiku-4-5-20251001")
	v.SetDefault("chat.max_tokens", 4096)
	v.SetDefault("chat.temperature", 0.2)
	v.SetDefault("chat.timeout_secs", 45)
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.cache_ttl_mins", 1440)
	v.SetDefault("queue.backend", "inline")
	v.SetDefault("queue.temporal_host_port", "localhost:7233")
	v.SetDefault("queue.temporal_namespace", "default")
	v.SetDefault("queue.task_queue", "scout-discovery")
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.max_attempts", 2)
	v.SetDefault("worker.backoff_secs", 5)
	v.SetDefault("worker.wallclock_secs", 600)
	v.SetDefault("worker.search_inter_call_ms", 500)
	v.SetDefault("worker.query_inter_call_ms", 1000)
	v.SetDefault("worker.drain_timeout_secs", 30)
	v.SetDefault("scoring.relevance_threshold", 75)
	v.SetDefault("scoring.semantic_threshold", 0.85)
	v.SetDefault("scoring.max_results", 10)
	v.SetDefault("enrichment.crawl_depth", 1)
	v.SetDefault("enrichment.max_context_len", 2000)
	v.SetDefault("enrichment.social_probe_max", 3)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stuck_pending_mins", 30)
	v.SetDefault("notion.rate_limit_rps", 3)
	v.SetDefault("pricing.fallback.per_query", 0.005)
	v.SetDefault("pricing.search.per_request", 0.006)
	v.SetDefault("pricing.embeddings.per_mtok", 0.02)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
