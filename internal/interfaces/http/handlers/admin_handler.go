package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/pkg/utils"
)

// AdminService holds the operator operations on users, keys and usage
type AdminService interface {
	CreateUser(ctx context.Context, input *entities.CreateUserInput) (*entities.CreateUserResponse, error)
	ListUsers(ctx context.Context, search string) ([]*entities.UserWithUsage, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*entities.UserWithUsage, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, input *entities.UpdateUserInput) (*entities.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ResetUsage(ctx context.Context, userID uuid.UUID) error
	GetUserUsage(ctx context.Context, userID uuid.UUID) (*entities.UsageSummary, error)
	ListRequestLogs(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.RequestLog, utils.PaginationMeta, error)
	CreateKey(ctx context.Context, userID uuid.UUID, name string) (*entities.ApiKey, error)
	ListKeys(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error)
	UpdateKey(ctx context.Context, keyID uuid.UUID, input *entities.UpdateApiKeyInput) (*entities.ApiKey, error)
	ActivateKey(ctx context.Context, keyID uuid.UUID) (*entities.ApiKey, error)
	DeactivateKey(ctx context.Context, keyID uuid.UUID) (*entities.ApiKey, error)
	DeleteKey(ctx context.Context, keyID uuid.UUID) error
}

type AdminHandler struct {
	admin AdminService
}

func NewAdminHandler(admin AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateUser creates a user and its default key
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var input entities.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	res, err := h.admin.CreateUser(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// ListUsers lists users with their current usage; ?search= filters by name or email
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": users, "total": len(users)})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.admin.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// UpdateUser changes limit, role or verification and can reset usage in the same call
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *AdminHandler) ResetUsage(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.ResetUsage(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "usage reset"})
}

// GetUsage returns the current period breakdown per key and endpoint
func (h *AdminHandler) GetUsage(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	summary, err := h.admin.GetUserUsage(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// ListLogs pages through the user's request logs with ?page=&limit=
func (h *AdminHandler) ListLogs(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var q utils.PaginationParams
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid pagination parameters"))
		return
	}
	pagination := utils.GetPaginationParams(q.Page, q.Limit)

	logs, meta, err := h.admin.ListRequestLogs(c.Request.Context(), userID, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": logs, "meta": meta})
}

func (h *AdminHandler) CreateKey(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.CreateApiKeyInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.Error(c, domainerrors.BadRequest(err.Error()))
			return
		}
	}

	key, err := h.admin.CreateKey(c.Request.Context(), userID, input.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, key)
}

func (h *AdminHandler) ListKeys(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	keys, err := h.admin.ListKeys(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": keys, "total": len(keys)})
}

func (h *AdminHandler) UpdateKey(c *gin.Context) {
	keyID, ok := pathUUID(c, "keyId")
	if !ok {
		return
	}
	var input entities.UpdateApiKeyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	key, err := h.admin.UpdateKey(c.Request.Context(), keyID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, key)
}

func (h *AdminHandler) ActivateKey(c *gin.Context) {
	h.setKeyState(c, h.admin.ActivateKey)
}

func (h *AdminHandler) DeactivateKey(c *gin.Context) {
	h.setKeyState(c, h.admin.DeactivateKey)
}

func (h *AdminHandler) DeleteKey(c *gin.Context) {
	keyID, ok := pathUUID(c, "keyId")
	if !ok {
		return
	}
	if err := h.admin.DeleteKey(c.Request.Context(), keyID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "api key deleted"})
}

func (h *AdminHandler) setKeyState(c *gin.Context, apply func(context.Context, uuid.UUID) (*entities.ApiKey, error)) {
	keyID, ok := pathUUID(c, "keyId")
	if !ok {
		return
	}
	key, err := apply(c.Request.Context(), keyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, key)
}

// pathUUID parses a uuid path parameter and writes a 400 when it is malformed
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
