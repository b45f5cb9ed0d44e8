package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/dormboard/internal/config"
    "github.com/iliyamo/dormboard/internal/model"
    "github.com/iliyamo/dormboard/internal/utils"
)

const testSecret = "test-secret"

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func serve(e *echo.Echo, method, path string, header http.Header) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    for k, v := range header {
        req.Header[http.CanonicalHeaderKey(k)] = v
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func bearer(t *testing.T, uid uint64, role string) http.Header {
    tok, err := utils.NewAccessToken(testSecret, uid, role, 5)
    require.NoError(t, err)
    return http.Header{"Authorization": []string{"Bearer " + tok.Token}}
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
    }, JWTAuth(testSecret))

    rec := serve(e, http.MethodGet, "/me", bearer(t, 42, "student"))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"user_id":42,"role":"student"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/me", nil)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = serve(e, http.MethodGet, "/me", http.Header{"Authorization": []string{"Bearer not.a.jwt"}})
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    other, err := utils.NewAccessToken("other-secret", 42, "admin", 5)
    require.NoError(t, err)
    rec = serve(e, http.MethodGet, "/me", http.Header{"Authorization": []string{"Bearer " + other.Token}})
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/staff", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        JWTAuth(testSecret), RequireRole(model.RoleRA, model.RoleAdmin))

    assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/staff", bearer(t, 7, "RA")).Code)
    assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/staff", bearer(t, 1, "admin")).Code)
    assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/staff", bearer(t, 42, "student")).Code)
}

func TestTokenBucket(t *testing.T) {
    _, rdb := setupTestRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            2 * time.Hour,
        KeyStrategy:    "ip_route",
        Prefix:         "test:rl",
    }
    e := echo.New()
    e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

    first := serve(e, http.MethodPost, "/login", nil)
    assert.Equal(t, http.StatusOK, first.Code)
    assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

    assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login", nil).Code)

    blocked := serve(e, http.MethodPost, "/login", nil)
    assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
    assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
    mr, rdb := setupTestRedis(t)
    mr.Close()

    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "test:rl"}
    e := echo.New()
    e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login", nil).Code)
    }
}

func TestRedisCacheAndPurge(t *testing.T) {
    _, rdb := setupTestRedis(t)
    cfg := config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          time.Minute,
        KeyStrategy:  "user_route_query",
        Prefix:       "test:cache",
        MaxBodyBytes: 1 << 20,
    }
    calls := 0
    e := echo.New()
    e.GET("/buildings", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"calls": calls})
    }, JWTAuth(testSecret), NewRedisCache(cfg, rdb, zap.NewNop()))

    admin := bearer(t, 1, "admin")
    miss := serve(e, http.MethodGet, "/buildings", admin)
    assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))

    hit := serve(e, http.MethodGet, "/buildings", admin)
    assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
    assert.JSONEq(t, miss.Body.String(), hit.Body.String())
    assert.Equal(t, 1, calls)

    // another user gets its own entry
    serve(e, http.MethodGet, "/buildings", bearer(t, 2, "admin"))
    assert.Equal(t, 2, calls)

    require.NoError(t, PurgeCache(context.Background(), rdb, cfg.Prefix))
    after := serve(e, http.MethodGet, "/buildings", admin)
    assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
    assert.Equal(t, 3, calls)
}

func TestRequestLoggerSetsID(t *testing.T) {
    e := echo.New()
    e.Use(RequestLogger(zap.NewNop()))
    e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

    rec := serve(e, http.MethodGet, "/healthz", nil)
    assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

    rec = serve(e, http.MethodGet, "/healthz", http.Header{RequestIDHeader: []string{"abc-123"}})
    assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
