package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
)

// defaultRateLimitKeys bounds the number of tracked clients; least recently
// used keys are evicted first.
const defaultRateLimitKeys = 100_000

// RateLimiter counts requests per key in fixed windows
type RateLimiter struct {
	mu     sync.Mutex
	hits   *ttlcache.Cache[string, *rateWindow]
	limit  int
	window time.Duration
	now    func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits: ttlcache.New[string, *rateWindow](
			ttlcache.WithTTL[string, *rateWindow](window),
			ttlcache.WithCapacity[string, *rateWindow](defaultRateLimitKeys),
			ttlcache.WithDisableTouchOnHit[string, *rateWindow](),
		),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// limit, together with the requests left in the current window.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	item := rl.hits.Get(key)
	if item == nil || !now.Before(item.Value().resetAt) {
		rl.hits.Set(key, &rateWindow{count: 1, resetAt: now.Add(rl.window)}, ttlcache.DefaultTTL)
		return true, rl.limit - 1
	}

	w := item.Value()
	if w.count >= rl.limit {
		return false, 0
	}
	w.count++
	return true, rl.limit - w.count
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey limits requests per key returned by keyFunc
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining := limiter.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				getRequestID(c),
			))
			return
		}
		c.Next()
	}
}
