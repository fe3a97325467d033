package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hotelpms/hotel-backend/internal/services"
)

// RateLimit limits requests per client IP within scope. A nil limiter lets
// every request through.
func RateLimit(limiter *services.RateLimitService, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		err := limiter.Check(c.Request.Context(), scope, c.ClientIP())
		if err == nil {
			c.Next()
			return
		}

		var rateErr *services.RateLimitError
		if errors.As(err, &rateErr) {
			retryAfter := rateErr.RetryAfterSeconds()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     rateErr.Message,
				"code":        "RATE_LIMITED",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
