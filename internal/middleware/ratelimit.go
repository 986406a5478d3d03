package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tanrid/internal/cache"
	apperrors "tanrid/internal/errors"
	"tanrid/internal/metrics"
)

// Limiter decides whether a request identified by key may proceed.
// retryAfter is only meaningful when allowed is false.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Name() string
}

// RedisLimiter is a fixed-window limiter shared across instances through Redis.
type RedisLimiter struct {
	client *cache.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows limit requests per key in each window.
func NewRedisLimiter(client *cache.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, now: time.Now}
}

func (l *RedisLimiter) Name() string { return "redis" }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	count, resetIn, err := l.client.IncrWindow(ctx, "rl:"+key, l.window, l.now())
	if err != nil {
		return false, 0, err
	}
	return count <= int64(l.limit), resetIn, nil
}

// MemoryLimiter is a per-process token bucket per key.
// Buckets idle for a full window are full again and get swept.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	every     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows bursts of limit requests refilled evenly over window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Name() string { return "memory" }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// sweep drops buckets not used for a window. Callers hold mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects clients that exceed the limiter budget for a route with 429.
// Limiter failures let the request through.
func RateLimit(limiter Limiter, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "ip:" + ip + ":" + c.Path()

			allowed, retryAfter, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("limiter", limiter.Name()),
					zap.Error(err),
				)
				metrics.RateLimitDecisions.WithLabelValues(limiter.Name(), "error").Inc()
				return next(c)
			}
			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				metrics.RateLimitDecisions.WithLabelValues(limiter.Name(), "rejected").Inc()
				return errorResponse(apperrors.ErrRateLimited)
			}
			metrics.RateLimitDecisions.WithLabelValues(limiter.Name(), "allowed").Inc()
			return next(c)
		}
	}
}
