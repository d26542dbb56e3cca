package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter caps requests per key over a fixed window. Stale entries are
// pruned lazily on access, so no background goroutine is needed.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string]*windowCount
	limit  int
	window time.Duration
}

type windowCount struct {
	start time.Time
	n     int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string]*windowCount),
		limit:  limit,
		window: window,
	}
}

func (r *RateLimiter) Allow(key string) bool {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.hits[key]
	if w == nil || now.Sub(w.start) >= r.window {
		if len(r.hits) > 10000 {
			r.prune(now)
		}
		r.hits[key] = &windowCount{start: now, n: 1}
		return true
	}
	if w.n >= r.limit {
		return false
	}
	w.n++
	return true
}

// prune drops expired windows. Caller holds r.mu.
func (r *RateLimiter) prune(now time.Time) {
	for k, w := range r.hits {
		if now.Sub(w.start) >= r.window {
			delete(r.hits, k)
		}
	}
}

// RateLimit limits by authenticated user where the context carries one,
// falling back to client IP for anonymous traffic.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = "u:" + strconv.FormatUint(uint64(id), 10)
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
