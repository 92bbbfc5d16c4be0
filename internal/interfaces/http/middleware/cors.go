package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"agency-proxy.backend/internal/usecases"
)

// CORSMiddleware applies the allowed origins to every route. Preflight requests are answered here.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	policy := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			usecases.HeaderAPIKey, IdempotencyHeader, RequestIDHeader,
		},
		ExposedHeaders: []string{
			HeaderRateLimitLimit, HeaderRateLimitRemaining, HeaderRateLimitUsed, RequestIDHeader,
		},
		AllowCredentials: true,
	})

	return func(c *gin.Context) {
		passed := false
		policy.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}
