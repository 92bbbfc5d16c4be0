package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/pkg/logger"
)

var suspiciousAgents = []string{"curl", "wget", "postman", "insomnia", "httpie"}

// FrontGuard restricts a route to the site's own frontend: Origin and Referer, when present,
// must mention publicHost, and common command-line and API-client user agents are refused.
func FrontGuard(publicHost string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" && !strings.Contains(origin, publicHost) {
			reject(c, "invalid origin", "origin", origin)
			return
		}
		if referer := c.GetHeader("Referer"); referer != "" && !strings.Contains(referer, publicHost) {
			reject(c, "invalid referer", "referer", referer)
			return
		}
		ua := strings.ToLower(c.Request.UserAgent())
		for _, agent := range suspiciousAgents {
			if strings.Contains(ua, agent) {
				reject(c, "user agent not allowed", "user_agent", ua)
				return
			}
		}
		c.Next()
	}
}

func reject(c *gin.Context, reason, field, value string) {
	logger.Debug(c.Request.Context(), "Front request rejected", zap.String("reason", reason), zap.String(field, value))
	response.Abort(c, domainerrors.Forbidden("unauthorized access: "+reason))
}
