package entities

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog is an append-only audit row for one authenticated request
type RequestLog struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	ApiKeyID   uuid.UUID `json:"apiKeyId"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	Status     int       `json:"status"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
