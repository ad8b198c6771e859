// Package config loads Vault Tracker configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
	Workers  WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port             string
	CORSOrigins      []string
	FrontendDistPath string // Optional
	ItemImagesDir    string
	LookupCacheSize  int
	LookupCacheTTL   time.Duration
}

// DatabaseConfig holds sqlite configuration.
type DatabaseConfig struct {
	Path string
}

// CatalogConfig holds the process-wide catalog API credentials.
// Users may override each of them from their settings page.
type CatalogConfig struct {
	RebrickableAPIKey       string
	BricksetAPIKey          string
	BricklinkConsumerKey    string
	BricklinkConsumerSecret string
	BricklinkTokenValue     string
	BricklinkTokenSecret    string
	DefaultCurrency         string
	UpstreamTimeout         time.Duration
	BrickLinkDailyLimit     int
}

// WorkerConfig holds background worker configuration.
type WorkerConfig struct {
	PriceCheckInterval time.Duration
	SnapshotHour       int // Hour of day (0-23) after which the daily snapshot is taken
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
			FrontendDistPath: os.Getenv("FRONTEND_DIST_PATH"),
			ItemImagesDir:    getEnv("ITEM_IMAGES_DIR", "./data/item_images"),
			LookupCacheSize:  getInt("LOOKUP_CACHE_SIZE", 256),
			LookupCacheTTL:   getDuration("LOOKUP_CACHE_TTL", 10*time.Minute),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./vault_tracker.db"),
		},
		Catalog: CatalogConfig{
			RebrickableAPIKey:       os.Getenv("REBRICKABLE_API_KEY"),
			BricksetAPIKey:          os.Getenv("BRICKSET_API_KEY"),
			BricklinkConsumerKey:    os.Getenv("BRICKLINK_CONSUMER_KEY"),
			BricklinkConsumerSecret: os.Getenv("BRICKLINK_CONSUMER_SECRET"),
			BricklinkTokenValue:     os.Getenv("BRICKLINK_TOKEN_VALUE"),
			BricklinkTokenSecret:    os.Getenv("BRICKLINK_TOKEN_SECRET"),
			DefaultCurrency:         strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
			UpstreamTimeout:         getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			BrickLinkDailyLimit:     getInt("BRICKLINK_DAILY_LIMIT", 5000),
		},
		Workers: WorkerConfig{
			PriceCheckInterval: getDuration("PRICE_CHECK_INTERVAL", 6*time.Hour),
			SnapshotHour:       getInt("SNAPSHOT_HOUR", 23),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("port must not be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Server.Port, err)
	}
	if c.Database.Path == "" {
		return errors.New("database path must not be empty")
	}
	if c.Catalog.UpstreamTimeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if c.Workers.SnapshotHour < 0 || c.Workers.SnapshotHour > 23 {
		return fmt.Errorf("snapshot hour must be between 0 and 23, got %d", c.Workers.SnapshotHour)
	}
	if c.Workers.PriceCheckInterval < time.Minute {
		return fmt.Errorf("price check interval must be at least 1m, got %s", c.Workers.PriceCheckInterval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// getInt returns the integer value of key, or defaultValue if unset or malformed.
func getInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// getDuration accepts Go duration strings ("90s", "6h") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
