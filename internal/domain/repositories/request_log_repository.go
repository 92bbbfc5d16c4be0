package repositories

import (
	"context"

	"github.com/google/uuid"

	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/pkg/utils"
)

type RequestLogRepository interface {
	Create(ctx context.Context, entry *entities.RequestLog) error
	ListByUserID(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.RequestLog, int64, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
