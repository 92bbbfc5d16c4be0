package middleware

import (
	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/internal/usecases"
)

// MasterChecker compares a credential against the operator key
type MasterChecker interface {
	IsMaster(raw string) bool
}

// MasterOnly lets only the master credential through. It never touches storage.
func MasterOnly(checker MasterChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := usecases.ResolveCredential(c.Request.Header)
		if err != nil {
			response.Abort(c, err)
			return
		}
		if !checker.IsMaster(raw) {
			response.Abort(c, domainerrors.Forbidden("master key required"))
			return
		}
		c.Set(IdentityKey, entities.MasterIdentity())
		c.Next()
	}
}
