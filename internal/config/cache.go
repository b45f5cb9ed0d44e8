package config

import (
    "strings"
    "time"
)

// CacheConfig configures the Redis response cache in front of the admin
// building directory.  Only successful responses to Methods are stored.
// KeyStrategy picks the request parts that form the key:
//
//   route_query       path template + raw query (shared by all callers)
//   user_route_query  adds the caller's user id, keeping entries private
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    methods := map[string]bool{}
    for _, m := range strings.Split(envStr("CACHE_METHODS", "GET"), ",") {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            methods[m] = true
        }
    }
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      methods,
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "user_route_query")),
        Prefix:       envStr("CACHE_PREFIX", "dormboard:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
