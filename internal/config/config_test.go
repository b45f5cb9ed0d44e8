package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestParseSuffixes(t *testing.T) {
    assert.Equal(t, []string{".edu", ".ac.uk"}, parseSuffixes(" .EDU, .ac.uk ,,"))
    assert.Nil(t, parseSuffixes(""))
}

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 2*time.Second, cfg.RefillInterval)
    assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRateLimitConfigRefillEvery(t *testing.T) {
    t.Setenv("RATE_LIMIT_REFILL_TOKENS", "5")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.RefillTokens)
    assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
}

func TestLoadCacheConfigDefaults(t *testing.T) {
    cfg := LoadCacheConfig()
    assert.True(t, cfg.Enabled)
    assert.True(t, cfg.Methods["GET"])
    assert.False(t, cfg.Methods["POST"])
    assert.Equal(t, "user_route_query", cfg.KeyStrategy)
    assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestRedisOptionsHostPortOverride(t *testing.T) {
    t.Setenv("REDIS_ADDR", "cache:6000")
    t.Setenv("REDIS_HOST", "redis.internal")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_DB", "3")

    opts := RedisOptions()
    assert.Equal(t, "redis.internal:6380", opts.Addr)
    assert.Equal(t, 3, opts.DB)
    assert.Nil(t, opts.TLSConfig)
}

func TestConfigIsDev(t *testing.T) {
    assert.True(t, Config{Env: "DEV"}.IsDev())
    assert.False(t, Config{Env: "prod"}.IsDev())
}
