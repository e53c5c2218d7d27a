// Package config loads application configuration from environment
// variables. Everything has a default so a bare `go run ./cmd/api`
// starts a working dev instance (in-memory store, public CoinGecko).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// RedisAddr empty means the in-memory store is used instead.
	// That is fine for a single dev instance but caching and rate
	// limits are then per-process, and the worker cannot run.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CoinGeckoBaseURL string `env:"COINGECKO_BASE_URL" envDefault:"https://api.coingecko.com/api/v3"`

	Cache     CacheConfig     `envPrefix:"CACHE_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Worker    WorkerConfig    `envPrefix:"WORKER_"`
}

// CacheConfig holds the TTL classes entries are written with.
type CacheConfig struct {
	Short  time.Duration `env:"TTL_SHORT" envDefault:"60s"`
	Medium time.Duration `env:"TTL_MEDIUM" envDefault:"300s"`
	Long   time.Duration `env:"TTL_LONG" envDefault:"1800s"`
}

// Tier is one named rate-limit class.
type Tier struct {
	MaxRequests int           `env:"MAX_REQUESTS"`
	Window      time.Duration `env:"WINDOW" envDefault:"1m"`
}

// RateLimitConfig groups the tiers applied to different endpoint
// groups.
type RateLimitConfig struct {
	// Standard covers general API endpoints.
	Standard Tier `envPrefix:"STANDARD_"`
	// Restricted covers resource-intensive endpoints.
	Restricted Tier `envPrefix:"RESTRICTED_"`
	// Relaxed covers cheap listing endpoints.
	Relaxed Tier `envPrefix:"RELAXED_"`
	// Detail covers the per-coin detail endpoint.
	Detail Tier `envPrefix:"DETAIL_"`
}

// WorkerConfig controls the cache-warming worker.
type WorkerConfig struct {
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"4m"`
	TopCoinsLimit   int           `env:"TOP_COINS_LIMIT" envDefault:"100"`
	Concurrency     int           `env:"CONCURRENCY" envDefault:"4"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Tier limits default here rather than in tags so an explicit
	// zero from the environment is corrected instead of enforced.
	applyDefault(&cfg.RateLimit.Standard.MaxRequests, 30)
	applyDefault(&cfg.RateLimit.Restricted.MaxRequests, 10)
	applyDefault(&cfg.RateLimit.Relaxed.MaxRequests, 60)
	applyDefault(&cfg.RateLimit.Detail.MaxRequests, 20)

	return cfg, nil
}

func applyDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// Validate checks invariants that env parsing cannot express.
func (c *Config) Validate() error {
	for name, t := range map[string]Tier{
		"standard":   c.RateLimit.Standard,
		"restricted": c.RateLimit.Restricted,
		"relaxed":    c.RateLimit.Relaxed,
		"detail":     c.RateLimit.Detail,
	} {
		if t.Window <= 0 {
			return fmt.Errorf("rate limit tier %s: window must be positive", name)
		}
	}
	if c.Cache.Medium <= 0 || c.Cache.Long <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}
