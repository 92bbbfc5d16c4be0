package middleware

import (
	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/domain/entities"
)

// IdentityKey is the gin context key holding the authenticated *entities.Identity
const IdentityKey = "identity"

// GetIdentity returns the identity set by QuotaAuthMiddleware
func GetIdentity(c *gin.Context) (*entities.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*entities.Identity)
	return id, ok && id != nil
}

// identityScope names the caller for per-caller storage keys
func identityScope(c *gin.Context) string {
	id, ok := GetIdentity(c)
	switch {
	case !ok:
		return "anonymous"
	case id.IsMaster:
		return "master"
	default:
		return id.UserID.String()
	}
}
