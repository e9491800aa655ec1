// Package ratelimit provides a fixed-window, in-memory request limiter.
package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const DefaultWindow = time.Minute

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c echo.Context) string

type bucket struct {
	count     int
	resetTime time.Time
}

// Limiter allows limit requests per key per window.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewLimiter creates a limiter. A non-positive limit disables limiting.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow counts one request against key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, exists := l.buckets[key]
	if !exists || now.After(b.resetTime) {
		l.buckets[key] = &bucket{count: 1, resetTime: now.Add(l.window)}
		return true
	}

	if b.count >= l.limit {
		return false
	}

	b.count++
	return true
}

// Middleware rejects requests over the limit with 429. A nil keyFunc keys by client IP.
func (l *Limiter) Middleware(keyFunc KeyFunc) echo.MiddlewareFunc {
	if keyFunc == nil {
		keyFunc = ByIP
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(keyFunc(c)) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

// Cleanup drops expired buckets. Its signature fits a scheduler task.
func (l *Limiter) Cleanup(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.After(b.resetTime) {
			delete(l.buckets, key)
		}
	}
	return nil
}

// Size returns the number of tracked keys.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ByIP keys requests by client IP.
func ByIP(c echo.Context) string {
	return c.RealIP()
}
