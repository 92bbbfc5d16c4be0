package models

import (
	"github.com/google/uuid"
)

// UsageRecord is one monthly counter; the composite unique index is the upsert target
type UsageRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_period,priority:1;index:idx_usage_user_period,priority:1"`
	ApiKeyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_period,priority:2;index"`
	Endpoint string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_usage_period,priority:3"`
	Month    int       `gorm:"not null;uniqueIndex:idx_usage_period,priority:4;index:idx_usage_user_period,priority:3"`
	Year     int       `gorm:"not null;uniqueIndex:idx_usage_period,priority:5;index:idx_usage_user_period,priority:2"`
	Count    int64     `gorm:"not null;default:0"`
}
