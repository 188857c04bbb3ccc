package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[server]
port = 9090
cors_origins = ["http://localhost:5173"]

[kraken]
http_timeout = "10s"

[cache]
backend = "redis"

[redis]
addr = "redis.internal:6379"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Kraken.HTTPTimeout.Duration)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)

	// Untouched fields keep their defaults.
	assert.Equal(t, "https://futures.kraken.com", cfg.Kraken.BaseURL)
	assert.Equal(t, 3, cfg.Kraken.MaxRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090
`), 0o600))

	t.Setenv("KRAKENDASH_SERVER_PORT", "7070")
	t.Setenv("KRAKENDASH_CREDENTIALS_API_KEY", "env-key")
	t.Setenv("KRAKENDASH_CREDENTIALS_API_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Credentials.APIKey)
	assert.Equal(t, "env-secret", cfg.Credentials.APISecret)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.LogLevel = "chatty"
	cfg.Cache.Backend = "magnetic-tape"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "backend")
}

func TestValidateWarmRefreshNeedsCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.WarmRefreshCron = "@every 5m"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm_refresh_cron")

	cfg.Credentials.APIKey = "k"
	cfg.Credentials.APISecret = "s"
	require.NoError(t, cfg.Validate())
}

func TestValidateCredentialsComeAsAPair(t *testing.T) {
	cfg := Defaults()
	cfg.Credentials.APIKey = "only-key"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set together")
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Credentials.APIKey = "real-key"
	cfg.Credentials.APISecret = "real-secret"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Credentials.APIKey)
	assert.Equal(t, "***", red.Credentials.APISecret)

	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Redis.Password)
}
