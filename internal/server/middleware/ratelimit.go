package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/kidsqa/realtime-gateway/internal/observability"
)

// staleLimiterAge is how long an idle per-client limiter is kept before
// the sweep drops it.
const staleLimiterAge = 10 * time.Minute

// IPRateLimiter hands out a token-bucket limiter per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a limiter allowing rps requests per second with
// the given burst per client IP.
func NewIPRateLimiter(rps, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.limiters[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = client
	}
	client.lastSeen = time.Now()

	if len(l.limiters) > 1024 {
		l.sweepLocked()
	}
	return client.limiter.Allow()
}

// sweepLocked drops limiters idle longer than staleLimiterAge.
func (l *IPRateLimiter) sweepLocked() {
	cutoff := time.Now().Add(-staleLimiterAge)
	for ip, client := range l.limiters {
		if client.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// RateLimit returns a middleware that rejects requests exceeding the
// per-IP limit with 429. A nil limiter disables limiting.
func RateLimit(limiter *IPRateLimiter, logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			logger.Warn("rate limit exceeded",
				observability.String("client_ip", c.ClientIP()),
				observability.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
