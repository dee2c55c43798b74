package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               string        `mapstructure:"port"`
	CORSOrigins        []string      `mapstructure:"cors_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// RedisConfig holds the cache backing store connection.
// An empty URL disables caching.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// DatabaseConfig holds the opportunity archive connection.
// An empty URL disables archiving.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// OddsAPIConfig configures the upstream odds provider client
type OddsAPIConfig struct {
	Key               string        `mapstructure:"key"`
	BaseURL           string        `mapstructure:"base_url"`
	Regions           string        `mapstructure:"regions"`
	Bookmakers        []string      `mapstructure:"bookmakers"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
}

// CacheConfig configures key namespacing and producer budgets
type CacheConfig struct {
	Namespace       string        `mapstructure:"namespace"`
	ProducerTimeout time.Duration `mapstructure:"producer_timeout"`
}

// KellyConfig holds stake sizing defaults
type KellyConfig struct {
	Fraction        float64 `mapstructure:"fraction"`
	MaxPct          float64 `mapstructure:"max_pct"` // percent of bankroll, 5 = 5%
	DefaultBankroll float64 `mapstructure:"default_bankroll"`
}

// Options converts the config into oddsmath Kelly options
func (k KellyConfig) Options() oddsmath.KellyOptions {
	return oddsmath.KellyOptions{Multiplier: k.Fraction, Cap: k.MaxPct / 100.0}
}

// LogConfig controls the root logger
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// AlertConfig controls line movement alerts
type AlertConfig struct {
	DedupWindow time.Duration `mapstructure:"dedup_window"`
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	OddsAPI  OddsAPIConfig  `mapstructure:"odds_api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Kelly    KellyConfig    `mapstructure:"kelly"`
	Log      LogConfig      `mapstructure:"log"`
	Alerts   AlertConfig    `mapstructure:"alerts"`
}

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string]string{
	"server.port":                  "PORT",
	"server.cors_origins":          "CORS_ORIGINS",
	"server.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
	"server.request_timeout":       "REQUEST_TIMEOUT",
	"redis.url":                    "REDIS_URL",
	"database.url":                 "DATABASE_URL",
	"odds_api.key":                 "ODDS_API_KEY",
	"odds_api.base_url":            "ODDS_API_BASE_URL",
	"odds_api.regions":             "ODDS_API_REGIONS",
	"odds_api.bookmakers":          "ODDS_API_BOOKMAKERS",
	"odds_api.requests_per_second": "ODDS_API_RPS",
	"odds_api.timeout":             "ODDS_API_TIMEOUT",
	"odds_api.max_attempts":        "ODDS_API_MAX_ATTEMPTS",
	"cache.namespace":              "CACHE_NAMESPACE",
	"cache.producer_timeout":       "PRODUCER_TIMEOUT",
	"kelly.fraction":               "KELLY_DEFAULT_FRACTION",
	"kelly.max_pct":                "KELLY_MAX_PCT",
	"kelly.default_bankroll":       "DEFAULT_BANKROLL",
	"log.level":                    "LOG_LEVEL",
	"log.file":                     "LOG_FILE",
	"alerts.dedup_window":          "ALERT_DEDUP_WINDOW",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("database.url", "")
	v.SetDefault("odds_api.key", "")
	v.SetDefault("odds_api.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("odds_api.regions", "us")
	v.SetDefault("odds_api.bookmakers", []string{"draftkings", "fanduel", "betmgm", "hardrockbet"})
	v.SetDefault("odds_api.requests_per_second", 2.0)
	v.SetDefault("odds_api.timeout", 10*time.Second)
	v.SetDefault("odds_api.max_attempts", 3)
	v.SetDefault("cache.namespace", "linepointer")
	v.SetDefault("cache.producer_timeout", 10*time.Second)
	v.SetDefault("kelly.fraction", oddsmath.DefaultKellyMultiplier)
	v.SetDefault("kelly.max_pct", oddsmath.DefaultKellyCap*100)
	v.SetDefault("kelly.default_bankroll", 1000.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("alerts.dedup_window", time.Hour)
}

// Load reads configuration from a local .env file (if present) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	cfg.OddsAPI.Bookmakers = splitList(cfg.OddsAPI.Bookmakers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Kelly.Fraction <= 0 || c.Kelly.Fraction > 1 {
		return fmt.Errorf("KELLY_DEFAULT_FRACTION must be in (0, 1], got %.2f", c.Kelly.Fraction)
	}
	if c.Kelly.MaxPct <= 0 || c.Kelly.MaxPct > 100 {
		return fmt.Errorf("KELLY_MAX_PCT must be in (0, 100], got %.2f", c.Kelly.MaxPct)
	}
	if c.OddsAPI.RequestsPerSecond <= 0 {
		return fmt.Errorf("ODDS_API_RPS must be positive")
	}
	if c.OddsAPI.MaxAttempts < 1 {
		return fmt.Errorf("ODDS_API_MAX_ATTEMPTS must be at least 1")
	}
	if c.Cache.ProducerTimeout <= 0 {
		return fmt.Errorf("PRODUCER_TIMEOUT must be positive")
	}
	return nil
}

// splitList normalizes list values that arrive as one comma-separated env string
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
