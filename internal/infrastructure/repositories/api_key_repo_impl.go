package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/infrastructure/models"
)

// ApiKeyRepository implements api key data operations
type ApiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new api key repository
func NewApiKeyRepository(db *gorm.DB) *ApiKeyRepository {
	return &ApiKeyRepository{db: db}
}

func (r *ApiKeyRepository) Create(ctx context.Context, apiKey *entities.ApiKey) error {
	m := &models.ApiKey{
		ID:         apiKey.ID,
		Key:        apiKey.Key,
		UserID:     apiKey.UserID,
		Name:       apiKey.Name,
		IsActive:   apiKey.IsActive,
		LastUsedAt: apiKey.LastUsedAt.Ptr(),
		CreatedAt:  apiKey.CreatedAt,
		UpdatedAt:  apiKey.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).Omit("User").Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByKey looks a key up by its secret with the owner preloaded
func (r *ApiKeyRepository) FindByKey(ctx context.Context, key string) (*entities.ApiKey, error) {
	var m models.ApiKey
	err := GetDB(ctx, r.db).
		Preload("User").
		Where("key = ?", key).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toApiKeyEntity(&m), nil
}

func (r *ApiKeyRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	var rows []models.ApiKey
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	keys := make([]*entities.ApiKey, 0, len(rows))
	for i := range rows {
		keys = append(keys, toApiKeyEntity(&rows[i]))
	}
	return keys, nil
}

func (r *ApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	var m models.ApiKey
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toApiKeyEntity(&m), nil
}

// Update writes name and active flag
func (r *ApiKeyRepository) Update(ctx context.Context, apiKey *entities.ApiKey) error {
	result := GetDB(ctx, r.db).Model(&models.ApiKey{}).Where("id = ?", apiKey.ID).Updates(map[string]interface{}{
		"name":       apiKey.Name,
		"is_active":  apiKey.IsActive,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// TouchLastUsed stamps the key without bumping updated_at
func (r *ApiKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&models.ApiKey{}).Where("id = ?", id).UpdateColumn("last_used_at", at).Error
}

func (r *ApiKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).Delete(&models.ApiKey{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *ApiKeyRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&models.ApiKey{}).Error
}

func toApiKeyEntity(m *models.ApiKey) *entities.ApiKey {
	k := &entities.ApiKey{
		ID:         m.ID,
		Key:        m.Key,
		UserID:     m.UserID,
		Name:       m.Name,
		IsActive:   m.IsActive,
		LastUsedAt: null.TimeFromPtr(m.LastUsedAt),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.User.ID != uuid.Nil {
		k.User = toUserEntity(&m.User)
	}
	return k
}
