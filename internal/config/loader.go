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
// built-in defaults, applies KRAKENDASH_* environment variable overrides, and
// returns the final Config. When path is empty only defaults and environment
// overrides apply. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KRAKENDASH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "KRAKENDASH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "KRAKENDASH_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimitPerMin, "KRAKENDASH_SERVER_RATE_LIMIT_PER_MIN")

	// ── Kraken ──
	setStr(&cfg.Kraken.BaseURL, "KRAKENDASH_KRAKEN_BASE_URL")
	setDuration(&cfg.Kraken.HTTPTimeout, "KRAKENDASH_KRAKEN_HTTP_TIMEOUT")
	setInt(&cfg.Kraken.MaxRetries, "KRAKENDASH_KRAKEN_MAX_RETRIES")
	setDuration(&cfg.Kraken.RetryBaseDelay, "KRAKENDASH_KRAKEN_RETRY_BASE_DELAY")
	setDuration(&cfg.Kraken.MinRequestGap, "KRAKENDASH_KRAKEN_MIN_REQUEST_GAP")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "KRAKENDASH_CACHE_BACKEND")
	setStr(&cfg.Cache.SweepCron, "KRAKENDASH_CACHE_SWEEP_CRON")
	setStr(&cfg.Cache.WarmRefreshCron, "KRAKENDASH_CACHE_WARM_REFRESH_CRON")
	setInt(&cfg.Cache.WarmRefreshDays, "KRAKENDASH_CACHE_WARM_REFRESH_DAYS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "KRAKENDASH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KRAKENDASH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KRAKENDASH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KRAKENDASH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KRAKENDASH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KRAKENDASH_REDIS_TLS_ENABLED")

	// ── Credentials ──
	setStr(&cfg.Credentials.APIKey, "KRAKENDASH_CREDENTIALS_API_KEY")
	setStr(&cfg.Credentials.APISecret, "KRAKENDASH_CREDENTIALS_API_SECRET")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "KRAKENDASH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
