package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Cron       CronConfig       `mapstructure:"cron"`
	Market     MarketConfig     `mapstructure:"market"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Sentiment  SentimentConfig  `mapstructure:"sentiment"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Outcome    OutcomeConfig    `mapstructure:"outcome"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ScoringPass string `mapstructure:"scoring_pass"`
	OutcomePass string `mapstructure:"outcome_pass"`
}

// MarketConfig locates the trading calendar. Session boundaries are fixed
// to the US equity day; only the zone is configurable.
type MarketConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type MarketDataConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type SentimentConfig struct {
	Weights   WeightsConfig  `mapstructure:"weights"`
	ML        MLScorerConfig `mapstructure:"ml"`
	MaxTokens int            `mapstructure:"max_tokens"`
}

// WeightsConfig weights the per-strategy scores inside the combined
// score. Weights of unavailable strategies are renormalized over the
// available ones at combination time.
type WeightsConfig struct {
	Dynamic float64 `mapstructure:"dynamic"`
	ML      float64 `mapstructure:"ml"`
	Keyword float64 `mapstructure:"keyword"`
}

type MLScorerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ForecastConfig struct {
	MoveScalePct       float64 `mapstructure:"move_scale_pct"`
	ProbSlope          float64 `mapstructure:"prob_slope"`
	AgeHalfLifeMinutes float64 `mapstructure:"age_half_life_minutes"`
}

type ScoringConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

type OutcomeConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.scoring_pass", "@every 2m")
	v.SetDefault("cron.outcome_pass", "@every 10m")
	v.SetDefault("market.timezone", "America/New_York")
	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.timeout", "15s")
	v.SetDefault("market_data.cache_ttl", "6h")

	v.SetDefault("sentiment.weights.dynamic", 0.35)
	v.SetDefault("sentiment.weights.ml", 0.45)
	v.SetDefault("sentiment.weights.keyword", 0.20)
	v.SetDefault("sentiment.ml.enabled", false)
	v.SetDefault("sentiment.ml.endpoint", "http://127.0.0.1:8501/score")
	v.SetDefault("sentiment.ml.timeout", "10s")
	v.SetDefault("sentiment.max_tokens", 200)

	v.SetDefault("forecast.move_scale_pct", 0.8)
	v.SetDefault("forecast.prob_slope", 3.0)
	v.SetDefault("forecast.age_half_life_minutes", 240)

	v.SetDefault("scoring.enabled", true)
	v.SetDefault("scoring.batch_size", 100)
	v.SetDefault("outcome.enabled", true)
	v.SetDefault("outcome.batch_size", 200)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
