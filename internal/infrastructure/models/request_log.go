package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_request_logs_user_created,priority:1"`
	ApiKeyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Endpoint   string    `gorm:"type:varchar(100);not null"`
	Method     string    `gorm:"type:varchar(10);not null"`
	Status     int       `gorm:"not null"`
	IP         string    `gorm:"type:varchar(64)"`
	UserAgent  string    `gorm:"type:text"`
	DurationMs int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"index:idx_request_logs_user_created,priority:2"`
}
