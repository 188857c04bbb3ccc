// Package config defines the top-level configuration for the dashboard
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KRAKENDASH_* environment variables.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Kraken      KrakenConfig      `toml:"kraken"`
	Cache       CacheConfig       `toml:"cache"`
	Redis       RedisConfig       `toml:"redis"`
	Credentials CredentialsConfig `toml:"credentials"`
	LogLevel    string            `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

// KrakenConfig holds Kraken Futures API endpoints and client tuning.
type KrakenConfig struct {
	BaseURL        string   `toml:"base_url"`
	HTTPTimeout    duration `toml:"http_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	RetryBaseDelay duration `toml:"retry_base_delay"`
	MinRequestGap  duration `toml:"min_request_gap"`
}

// CacheConfig selects and tunes the dashboard data cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `toml:"backend"`
	// SweepCron periodically evicts expired memory-cache entries. Empty
	// disables sweeping.
	SweepCron string `toml:"sweep_cron"`
	// WarmRefreshCron rebuilds the dashboard for the configured credentials
	// on a schedule and pushes the result to WebSocket clients. Empty
	// disables warm refresh.
	WarmRefreshCron string `toml:"warm_refresh_cron"`
	WarmRefreshDays int    `toml:"warm_refresh_days"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// CredentialsConfig holds optional server-side API credentials, used only
// for scheduled warm refreshes. Request-scoped credentials always come from
// the client.
type CredentialsConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
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

// Defaults returns the built-in configuration used as the base layer under
// the TOML file and environment overrides.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimitPerMin: 120,
		},
		Kraken: KrakenConfig{
			BaseURL:        "https://futures.kraken.com",
			HTTPTimeout:    duration{30 * time.Second},
			MaxRetries:     3,
			RetryBaseDelay: duration{2 * time.Second},
			MinRequestGap:  duration{250 * time.Millisecond},
		},
		Cache: CacheConfig{
			Backend:         "memory",
			SweepCron:       "@every 10m",
			WarmRefreshDays: 30,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Validate checks the configuration for internal consistency and returns a
// single error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMin < 0 {
		errs = append(errs, "server: rate_limit_per_min must not be negative")
	}

	if c.Kraken.BaseURL == "" {
		errs = append(errs, "kraken: base_url must not be empty")
	}
	if c.Kraken.MaxRetries < 0 {
		errs = append(errs, "kraken: max_retries must not be negative")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !validCacheBackends[strings.ToLower(c.Cache.Backend)] {
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if strings.ToLower(c.Cache.Backend) == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when cache.backend is redis")
	}
	if c.Cache.WarmRefreshCron != "" {
		if c.Credentials.APIKey == "" || c.Credentials.APISecret == "" {
			errs = append(errs, "cache: warm_refresh_cron requires credentials.api_key and credentials.api_secret")
		}
		if c.Cache.WarmRefreshDays < 1 || c.Cache.WarmRefreshDays > 90 {
			errs = append(errs, fmt.Sprintf("cache: warm_refresh_days must be 1-90, got %d", c.Cache.WarmRefreshDays))
		}
	}

	// Credentials come as a pair or not at all.
	ck := c.Credentials.APIKey != ""
	cs := c.Credentials.APISecret != ""
	if ck != cs {
		errs = append(errs, "credentials: api_key and api_secret must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
