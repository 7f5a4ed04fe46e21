// Package config reads runtime settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable through SHOP_STORAGE.
const (
	StorageMemory   = "memory"
	StorageBigCache = "bigcache"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

var ErrUnknownStorage = errors.New("config: unknown storage backend")

type Config struct {
	APIURL        string
	HTTPTimeout   time.Duration
	HTTPRetries   int
	Storage       string
	RedisURL      string
	RedisPrefix   string
	PostgresDSN   string
	PostgresTable string
	BigCacheMB    int
	LogLevel      string
	LogFormat     string
	MockAddr      string
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error) and then the environment. Variables already set in
// the environment win over file values.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	return &Config{
		APIURL:        getEnv("SHOP_API_URL", "http://localhost:5001/api"),
		HTTPTimeout:   getDurationEnv("SHOP_HTTP_TIMEOUT", 10*time.Second),
		HTTPRetries:   getIntEnv("SHOP_HTTP_RETRIES", 0),
		Storage:       strings.ToLower(getEnv("SHOP_STORAGE", StorageMemory)),
		RedisURL:      getEnv("SHOP_REDIS_URL", "redis://localhost:6379"),
		RedisPrefix:   getEnv("SHOP_REDIS_PREFIX", "shopcache:"),
		PostgresDSN:   getEnv("SHOP_POSTGRES_DSN", ""),
		PostgresTable: getEnv("SHOP_POSTGRES_TABLE", "shop_cache"),
		BigCacheMB:    getIntEnv("SHOP_BIGCACHE_MB", 64),
		LogLevel:      getEnv("SHOP_LOG_LEVEL", "info"),
		LogFormat:     getEnv("SHOP_LOG_FORMAT", "text"),
		MockAddr:      getEnv("SHOP_MOCK_ADDR", ":5001"),
	}
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageBigCache, StorageRedis:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: SHOP_POSTGRES_DSN is required for %s storage", StoragePostgres)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage)
	}
	if c.APIURL == "" {
		return errors.New("config: SHOP_API_URL is empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getDurationEnv accepts plain seconds ("15") or a Go duration ("1m30s").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
