package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"task_manager/internal/logger"

	"github.com/gin-gonic/gin"
)

// Limiter counts a hit for key and reports whether it is still within max
// for the current fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

type windowInfo struct {
	start  time.Time
	length time.Duration
	count  int
}

func (w *windowInfo) expired(now time.Time) bool {
	return now.Sub(w.start) >= w.length
}

// MemoryLimiter is a process local fixed-window limiter used when Redis is
// not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowInfo
	now     func() time.Time
	sweepAt int
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*windowInfo), now: time.Now, sweepAt: 10000}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	wi, ok := l.windows[key]
	if !ok || wi.expired(now) {
		l.windows[key] = &windowInfo{start: now, length: window, count: 1}
		l.sweep(now)
		return max > 0, nil
	}
	wi.count++
	return wi.count <= max, nil
}

// sweep drops expired windows once the map grows; called with mu held.
// Each entry expires against the window it was opened with.
func (l *MemoryLimiter) sweep(now time.Time) {
	if len(l.windows) < l.sweepAt {
		return
	}
	for k, wi := range l.windows {
		if wi.expired(now) {
			delete(l.windows, k)
		}
	}
}

// RateLimit rejects clients that send more than maxRequests per window.
// Requests are keyed by scope and client IP. Limiter errors fail open.
func RateLimit(l Limiter, scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl:" + scope + ":" + c.ClientIP()

		ok, err := l.Allow(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Header("X-RateLimit-Error", "limiter-error")
			c.Next()
			return
		}

		if !ok {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
