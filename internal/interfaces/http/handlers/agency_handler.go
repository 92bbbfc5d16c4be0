package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/internal/usecases"
)

// AgencyService is the read side of the agencies directory
type AgencyService interface {
	SearchByName(ctx context.Context, q string) (*entities.AgencySearchResult, error)
	Search(ctx context.Context, q string) (*entities.AgencySearchResult, error)
	Raw(ctx context.Context) (json.RawMessage, error)
	FrontList(ctx context.Context) (*usecases.FrontListing, error)
}

type AgencyHandler struct {
	agencies AgencyService
}

func NewAgencyHandler(agencies AgencyService) *AgencyHandler {
	return &AgencyHandler{agencies: agencies}
}

// SearchByName handles GET /api/agencia?q=
func (h *AgencyHandler) SearchByName(c *gin.Context) {
	res, err := h.agencies.SearchByName(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Search handles GET /api/buscar?q=
func (h *AgencyHandler) Search(c *gin.Context) {
	res, err := h.agencies.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// List handles GET /api/listar and serves the snapshot as stored
func (h *AgencyHandler) List(c *gin.Context) {
	raw, err := h.agencies.Raw(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// Front handles GET /api/front
func (h *AgencyHandler) Front(c *gin.Context) {
	res, err := h.agencies.FrontList(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}
