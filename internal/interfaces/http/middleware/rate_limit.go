package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/interfaces/http/response"
)

// Limiter answers whether key may proceed now
type Limiter interface {
	Allow(key string) bool
}

// IPRateLimitMiddleware throttles unauthenticated routes per client IP
func IPRateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			response.ErrorWithError(c, http.StatusTooManyRequests, domainerrors.CodeTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
