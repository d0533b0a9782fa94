package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kFady/stereo-site-1/pkg/errors"
)

// RateLimitConfig configures the per-client token-bucket limiter.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained refill rate.  Zero or negative
	// disables limiting.
	RequestsPerSecond float64
	// Burst is the bucket capacity.
	Burst int
	// SkipPaths bypass the limiter entirely.
	SkipPaths []string
	// CleanupInterval controls eviction of idle client buckets.
	CleanupInterval time.Duration
}

// tokenBucket holds the limiter state for one client.
type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// TokenBucketLimiter is an in-memory token-bucket limiter keyed by client.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    float64
	burst   float64

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewTokenBucketLimiter builds a limiter and starts its eviction loop.
func NewTokenBucketLimiter(rate float64, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &TokenBucketLimiter{
		buckets:     make(map[string]*tokenBucket),
		rate:        rate,
		burst:       float64(burst),
		stopCleanup: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop(cleanupInterval)
	}
	return l
}

// Allow consumes one token for key, reporting whether the request may
// proceed and how many whole tokens remain.
func (l *TokenBucketLimiter) Allow(key string) (bool, int) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false, 0
	}
	b.tokens--
	return true, int(b.tokens)
}

// Close stops the eviction loop.
func (l *TokenBucketLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *TokenBucketLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCleanup:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-interval)
			l.mu.Lock()
			for key, b := range l.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RateLimit rejects requests beyond the per-client budget with 429.  The
// client key is the IP gin derives from the connection and proxy headers.
func RateLimit(limiter *TokenBucketLimiter, cfg RateLimitConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ok, remaining := limiter.Allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(int(limiter.burst)))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    string(errors.ErrCodeTooManyRequests),
					"message": errors.DefaultMessageForCode(errors.ErrCodeTooManyRequests),
				},
			})
			return
		}
		c.Next()
	}
}
