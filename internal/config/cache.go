package config

import (
	"strings"
	"time"
)

// CacheConfig defines the policy of the intervention read-model cache.
// Backend selects where entries live: "memory" keeps them in process, "redis"
// shares them between instances.  Entries expire Sliding after their last
// read and never outlive Absolute.  Capacity bounds the memory backend; the
// least recently read entry is evicted first.  When InvalidationChannel is
// set and Redis is reachable, every explicit invalidation is broadcast so
// that other instances drop their local copy.
type CacheConfig struct {
	Enabled             bool
	Backend             string
	Sliding             time.Duration
	Absolute            time.Duration
	Capacity            int
	GCInterval          time.Duration
	Prefix              string
	InvalidationChannel string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:             envBool("CACHE_ENABLED", true),
		Backend:             strings.ToLower(envStr("CACHE_BACKEND", "memory")),
		Sliding:             envDur("CACHE_SLIDING_TTL", 5*time.Minute),
		Absolute:            envDur("CACHE_ABSOLUTE_TTL", 30*time.Minute),
		Capacity:            envInt("CACHE_CAPACITY", 1000),
		GCInterval:          envDur("CACHE_GC_INTERVAL", time.Minute),
		Prefix:              envStr("CACHE_PREFIX", "cache"),
		InvalidationChannel: envStr("CACHE_INVALIDATION_CHANNEL", "cache:invalidate"),
	}
	if cfg.Sliding <= 0 {
		cfg.Sliding = 5 * time.Minute
	}
	if cfg.Absolute < cfg.Sliding {
		cfg.Absolute = cfg.Sliding
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	return cfg
}
