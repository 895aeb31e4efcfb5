package httpapi

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/apperr"
)

// RateLimiter allows at most limit requests per client in each window.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string]*window
	limit  int
	per    time.Duration
	now    func() time.Time
	pruned time.Time
}

type window struct {
	start time.Time
	n     int
}

// NewRateLimiter creates a limiter. A limit below 1 disables it.
func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	return &RateLimiter{hits: make(map[string]*window), limit: limit, per: per, now: time.Now}
}

// Allow records a request from key and reports whether it is within the limit.
func (r *RateLimiter) Allow(key string) bool {
	if r == nil || r.limit < 1 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.prune(now)
	w, ok := r.hits[key]
	if !ok || now.Sub(w.start) >= r.per {
		r.hits[key] = &window{start: now, n: 1}
		return true
	}
	if w.n >= r.limit {
		return false
	}
	w.n++
	return true
}

// prune drops expired windows at most once per window length.
func (r *RateLimiter) prune(now time.Time) {
	if now.Sub(r.pruned) < r.per {
		return
	}
	for k, w := range r.hits {
		if now.Sub(w.start) >= r.per {
			delete(r.hits, k)
		}
	}
	r.pruned = now
}

// Middleware rejects requests over the limit with RATE_LIMIT_EXCEEDED. Clients
// are keyed by c.ClientIP, which only honors forwarding headers set by the
// engine's trusted proxies.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			fail(c, apperr.Classify(apperr.New(apperr.CodeRateLimitExceeded, "too many requests, retry later")))
			return
		}
		c.Next()
	}
}
