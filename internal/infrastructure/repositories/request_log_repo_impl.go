package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/internal/infrastructure/models"
	"agency-proxy.backend/pkg/utils"
)

// RequestLogRepository stores the per-request audit trail
type RequestLogRepository struct {
	db *gorm.DB
}

func NewRequestLogRepository(db *gorm.DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

func (r *RequestLogRepository) Create(ctx context.Context, entry *entities.RequestLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = utils.GenerateUUIDv7()
	}
	m := &models.RequestLog{
		ID:         entry.ID,
		UserID:     entry.UserID,
		ApiKeyID:   entry.ApiKeyID,
		Endpoint:   entry.Endpoint,
		Method:     entry.Method,
		Status:     entry.Status,
		IP:         entry.IP,
		UserAgent:  entry.UserAgent,
		DurationMs: entry.DurationMs,
		CreatedAt:  entry.CreatedAt,
	}
	return GetDB(ctx, r.db).Create(m).Error
}

// ListByUserID returns a page of the user's logs, newest first, with the total count
func (r *RequestLogRepository) ListByUserID(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.RequestLog, int64, error) {
	var total int64
	base := GetDB(ctx, r.db).Model(&models.RequestLog{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.RequestLog
	query := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("created_at DESC")
	if pagination.Limit > 0 {
		query = query.Offset(pagination.CalculateOffset()).Limit(pagination.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]*entities.RequestLog, 0, len(rows))
	for _, m := range rows {
		logs = append(logs, &entities.RequestLog{
			ID:         m.ID,
			UserID:     m.UserID,
			ApiKeyID:   m.ApiKeyID,
			Endpoint:   m.Endpoint,
			Method:     m.Method,
			Status:     m.Status,
			IP:         m.IP,
			UserAgent:  m.UserAgent,
			DurationMs: m.DurationMs,
			CreatedAt:  m.CreatedAt,
		})
	}
	return logs, total, nil
}

func (r *RequestLogRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&models.RequestLog{}).Error
}
