package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleTTL is how long a client's limiter survives without requests.
const idleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages one token bucket per client key.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	r       rate.Limit
	b       int
	now     func() time.Time
}

// NewKeyedRateLimiter creates a rate limiter allowing r events per second with
// bursts of b per key.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		clients: make(map[string]*clientLimiter),
		r:       r,
		b:       b,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed now.
func (l *KeyedRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[key] = c
	}
	c.lastSeen = l.now()
	l.mu.Unlock()
	return c.limiter.Allow()
}

// Sweep forgets clients idle for longer than idleTTL.
func (l *KeyedRateLimiter) Sweep() {
	cutoff := l.now().Add(-idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Run sweeps idle clients every interval until ctx is done.
func (l *KeyedRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// RateLimitMiddleware returns a Gin middleware limiting each client IP.
// Request headers never select the bucket.
func RateLimitMiddleware(limiter *KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow("ip:" + c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
