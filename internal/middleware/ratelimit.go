package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/settlegate/settlegate/internal/config"
)

// RateLimitMiddleware throttles the settlement surface with one shared token
// bucket. Settlements serialize behind the executor's entry guard anyway, so
// a global limiter is enough to shed abusive callers early.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
