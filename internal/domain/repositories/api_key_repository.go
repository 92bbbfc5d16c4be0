package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agency-proxy.backend/internal/domain/entities"
)

type ApiKeyRepository interface {
	Create(ctx context.Context, apiKey *entities.ApiKey) error
	// FindByKey returns the key with its owner preloaded, regardless of IsActive.
	FindByKey(ctx context.Context, key string) (*entities.ApiKey, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error)
	Update(ctx context.Context, apiKey *entities.ApiKey) error
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
