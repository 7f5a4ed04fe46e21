package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"SHOP_API_URL", "SHOP_HTTP_TIMEOUT", "SHOP_HTTP_RETRIES", "SHOP_STORAGE",
	"SHOP_REDIS_URL", "SHOP_REDIS_PREFIX", "SHOP_POSTGRES_DSN", "SHOP_POSTGRES_TABLE",
	"SHOP_BIGCACHE_MB", "SHOP_LOG_LEVEL", "SHOP_LOG_FORMAT", "SHOP_MOCK_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "http://localhost:5001/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.HTTPRetries)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "shopcache:", cfg.RedisPrefix)
	assert.Equal(t, "shop_cache", cfg.PostgresTable)
	assert.Equal(t, 64, cfg.BigCacheMB)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":5001", cfg.MockAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOP_API_URL", "https://shop.example.com/api")
	t.Setenv("SHOP_HTTP_TIMEOUT", "1m30s")
	t.Setenv("SHOP_STORAGE", "Redis")
	t.Setenv("SHOP_BIGCACHE_MB", "not-a-number")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "https://shop.example.com/api", cfg.APIURL)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, 64, cfg.BigCacheMB, "invalid ints fall back to the default")
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SHOP_STORAGE=postgres\nSHOP_HTTP_TIMEOUT=3\nSHOP_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("SHOP_LOG_LEVEL", "warn")
	t.Cleanup(func() {
		os.Unsetenv("SHOP_STORAGE")
		os.Unsetenv("SHOP_HTTP_TIMEOUT")
	})

	cfg := Load(path)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over file")
	assert.Error(t, cfg.Validate(), "postgres storage needs a DSN")
}

func TestValidate_UnknownStorage(t *testing.T) {
	cfg := &Config{APIURL: "http://x", Storage: "floppy"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStorage)
}
