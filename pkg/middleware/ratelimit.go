package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/ride-board/pkg/common"
	"github.com/richxcame/ride-board/pkg/logger"
	"github.com/richxcame/ride-board/pkg/ratelimit"
)

// RateLimit enforces per-client request limits. Clients are keyed by IP.
// A limiter failure admits the request; rate limiting is protection, not a
// dependency.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.Request.Method + " " + c.FullPath()
		rule := limiter.RuleFor(endpoint)

		result, err := limiter.Allow(c.Request.Context(), endpoint, c.ClientIP(), rule)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			common.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
