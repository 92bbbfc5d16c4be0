package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/internal/usecases"
)

// SyncService refreshes the dataset on demand and reports its schedule
type SyncService interface {
	Sync(ctx context.Context) (*usecases.SyncResult, error)
	Status() entities.DatasetStatus
}

type SyncHandler struct {
	sync SyncService
}

func NewSyncHandler(sync SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Sync handles POST /api/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	res, err := h.sync.Sync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Info handles GET /api/sync
func (h *SyncHandler) Info(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"message": "manual agencies synchronization endpoint",
		"usage":   "send a POST request to run the synchronization now",
		"status":  h.sync.Status(),
	})
}
