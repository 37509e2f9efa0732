package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresCoreSettings(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "secret",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost/campmeet",
		"REDIS_URL":            "redis://localhost:6379/0",
		"JWT_SECRET":           "secret",
		"PORT":                 "",
		"RATES_CACHE_TTL":      "",
		"PRICING_LOCK_TTL":     "",
		"RATE_LIMIT":           "",
		"EVENTS_DEFAULT_LIMIT": "",
		"REPRICE_QUEUE":        "",
		"REPRICE_CONCURRENCY":  "",
		"CURRENCY_CODE":        "",
		"CORS_ALLOWED_ORIGINS": "",
		"DB_MIGRATE_ON_START":  "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, 5*time.Minute, cfg.RatesCacheTTL)
	require.Equal(t, 30*time.Second, cfg.PricingLockTTL)
	require.Equal(t, "300-M", cfg.RateLimit)
	require.Equal(t, 20, cfg.EventsDefaultLimit)
	require.Equal(t, "pricing", cfg.RepriceQueue)
	require.Equal(t, 4, cfg.RepriceConcurrency)
	require.True(t, cfg.MigrateOnStart)
	require.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost/campmeet",
		"REDIS_URL":            "redis://localhost:6379/0",
		"JWT_SECRET":           "secret",
		"PORT":                 "9090",
		"PRICING_LOCK_TTL":     "45s",
		"CORS_ALLOWED_ORIGINS": "https://portal.example.org, https://admin.example.org",
		"DB_MIGRATE_ON_START":  "false",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 45*time.Second, cfg.PricingLockTTL)
	require.Equal(t, []string{"https://portal.example.org", "https://admin.example.org"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.MigrateOnStart)
}
