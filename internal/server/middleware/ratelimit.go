package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/promptforge/optimizer-api/pkg/api"
)

// IPRateLimiter manages per-client-IP token buckets. It sits in front of the
// per-user fixed window inside the orchestrator and exists to shed abusive
// traffic before it touches any backend.
type IPRateLimiter struct {
	clients map[string]*rate.Limiter
	mu      sync.RWMutex
	rps     rate.Limit
	burst   int
	logger  *zap.Logger
}

// NewIPRateLimiter creates a new rate limiter.
func NewIPRateLimiter(rps float64, burst int, logger *zap.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		clients: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		logger:  logger,
	}
}

// getLimiter returns a rate limiter for the given client IP.
func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.clients[ip]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = rl.clients[ip]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rps, rl.burst)
	rl.clients[ip] = limiter

	return limiter
}

// Middleware returns the Gin middleware handler.
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getLimiter(ip)

		if !limiter.Allow() {
			rl.logger.Warn("IP rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.RateLimitError(1))
			return
		}

		c.Next()
	}
}
