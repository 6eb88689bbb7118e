package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigShorthands(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 5 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("ttl must be at least five refill intervals, got %s", cfg.TTL)
	}
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_ABSOLUTE_TTL", "1m")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()
	if cfg.Enabled || cfg.Backend != "redis" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Absolute != cfg.Sliding || cfg.Sliding != 5*time.Minute {
		t.Fatalf("absolute must not be shorter than sliding: %+v", cfg)
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_INT", "twelve")
	t.Setenv("X_BOOL", "maybe")
	if envInt("X_INT", 3) != 3 || !envBool("X_BOOL", true) || envDur("X_DUR_UNSET", time.Minute) != time.Minute {
		t.Fatal("invalid values must yield the default")
	}
}

func TestAccessAndRefreshTTL(t *testing.T) {
	c := Config{AccessTTLMin: 15, RefreshTTLDays: 7}
	if c.AccessTTL() != 15*time.Minute || c.RefreshTTL() != 7*24*time.Hour {
		t.Fatalf("unexpected ttls %s %s", c.AccessTTL(), c.RefreshTTL())
	}
}
