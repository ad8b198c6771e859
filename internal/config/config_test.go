package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_PATH", "CORS_ALLOWED_ORIGINS", "DEFAULT_CURRENCY", "UPSTREAM_TIMEOUT",
		"PRICE_CHECK_INTERVAL", "SNAPSHOT_HOUR", "LOOKUP_CACHE_SIZE", "LOOKUP_CACHE_TTL",
		"BRICKLINK_DAILY_LIMIT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./vault_tracker.db", cfg.Database.Path)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "USD", cfg.Catalog.DefaultCurrency)
	assert.Equal(t, 10*time.Second, cfg.Catalog.UpstreamTimeout)
	assert.Equal(t, 5000, cfg.Catalog.BrickLinkDailyLimit)
	assert.Equal(t, 6*time.Hour, cfg.Workers.PriceCheckInterval)
	assert.Equal(t, 23, cfg.Workers.SnapshotHour)
	assert.Equal(t, 256, cfg.Server.LookupCacheSize)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://vault.example.com, https://admin.example.com ,")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("UPSTREAM_TIMEOUT", "5")
	t.Setenv("PRICE_CHECK_INTERVAL", "30m")
	t.Setenv("BRICKSET_API_KEY", "3-abcd")
	t.Setenv("BRICKLINK_CONSUMER_KEY", "ck")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://vault.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "EUR", cfg.Catalog.DefaultCurrency)
	assert.Equal(t, 5*time.Second, cfg.Catalog.UpstreamTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Workers.PriceCheckInterval)
	assert.Equal(t, "3-abcd", cfg.Catalog.BricksetAPIKey)
	assert.Equal(t, "ck", cfg.Catalog.BricklinkConsumerKey)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("LOOKUP_CACHE_SIZE", "lots")
	t.Setenv("LOOKUP_CACHE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Server.LookupCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Server.LookupCacheTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Path: "test.db"},
			Catalog:  CatalogConfig{UpstreamTimeout: time.Second},
			Workers:  WorkerConfig{PriceCheckInterval: time.Hour, SnapshotHour: 23},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero timeout", func(c *Config) { c.Catalog.UpstreamTimeout = 0 }, true},
		{"snapshot hour out of range", func(c *Config) { c.Workers.SnapshotHour = 24 }, true},
		{"interval too short", func(c *Config) { c.Workers.PriceCheckInterval = time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
