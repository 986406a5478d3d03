package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tanrid/internal/cache"
)

type failingLimiter struct{}

func (failingLimiter) Name() string { return "failing" }

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis: connection refused")
}

func limitedServer(limiter Limiter) *echo.Echo {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.POST("/auth/login", ok, RateLimit(limiter, zap.NewNop()))
	e.POST("/auth/forgot", ok, RateLimit(limiter, zap.NewNop()))
	return e
}

func post(e *echo.Echo, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":52100"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_Memory(t *testing.T) {
	e := limitedServer(NewMemoryLimiter(3, time.Minute))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, post(e, "/auth/login", "10.0.0.1").Code)
	}

	rec := post(e, "/auth/login", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, post(e, "/auth/login", "10.0.0.2").Code)
	assert.Equal(t, http.StatusNoContent, post(e, "/auth/forgot", "10.0.0.1").Code)
}

func TestRateLimit_RedisWindowRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0)
	defer client.Close()

	now := time.Unix(1_700_000_000, 0)
	limiter := NewRedisLimiter(client, 2, time.Minute)
	limiter.now = func() time.Time { return now }
	e := limitedServer(limiter)

	assert.Equal(t, http.StatusNoContent, post(e, "/auth/login", "10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, post(e, "/auth/login", "10.0.0.1").Code)

	rec := post(e, "/auth/login", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "40", rec.Header().Get("Retry-After"))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, post(e, "/auth/login", "10.0.0.1").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	e := limitedServer(failingLimiter{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, post(e, "/auth/login", "10.0.0.1").Code)
	}
}

func TestMemoryLimiter_RetryAfter(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)

	allowed, _, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, retryAfter, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, 50*time.Second)
}

func TestRateLimit_IgnoresForwardingHeaders(t *testing.T) {
	e := limitedServer(NewMemoryLimiter(2, time.Minute))

	rejected := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:52100"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}
	assert.Equal(t, 18, rejected)
}

func TestMemoryLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, _, err := limiter.Allow(ctx, fmt.Sprintf("ip:198.51.100.%d:/auth/login", i))
		require.NoError(t, err)
	}
	allowed, _, err := limiter.Allow(ctx, "ip:10.0.0.1:/auth/login")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Len(t, limiter.buckets, 101)

	now = now.Add(30 * time.Second)
	allowed, _, err = limiter.Allow(ctx, "ip:10.0.0.1:/auth/login")
	require.NoError(t, err)
	assert.False(t, allowed)

	now = now.Add(time.Minute)
	allowed, _, err = limiter.Allow(ctx, "ip:10.0.0.1:/auth/login")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Len(t, limiter.buckets, 1)
}
