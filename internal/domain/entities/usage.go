package entities

import (
	"time"

	"github.com/google/uuid"
)

// Period is a calendar month bucket
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PeriodOf returns the month bucket t falls into, evaluated in loc
func PeriodOf(t time.Time, loc *time.Location) Period {
	if loc != nil {
		t = t.In(loc)
	}
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// UsageRecord counts requests for one (user, key, endpoint, month, year) tuple
type UsageRecord struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"userId"`
	ApiKeyID uuid.UUID `json:"apiKeyId"`
	Endpoint string    `json:"endpoint"`
	Month    int       `json:"month"`
	Year     int       `json:"year"`
	Count    int64     `json:"count"`
}

// ConsumeResult is the outcome of an atomic check-and-increment
type ConsumeResult struct {
	Allowed bool
	// Used is the user's aggregate for the period after the attempt.
	Used    int64
	Limit   int64
	Period  Period
}

// KeyUsage is the current period consumption of a single key, split by endpoint
type KeyUsage struct {
	ApiKeyID   uuid.UUID        `json:"apiKeyId"`
	Name       string           `json:"name"`
	IsActive   bool             `json:"isActive"`
	Total      int64            `json:"total"`
	ByEndpoint map[string]int64 `json:"byEndpoint"`
}

// UsageSummary is a user's quota position for the current period
type UsageSummary struct {
	UserID    uuid.UUID   `json:"userId"`
	Period    Period      `json:"period"`
	Limit     int64       `json:"limit"`
	Used      int64       `json:"used"`
	Remaining int64       `json:"remaining"`
	Keys      []*KeyUsage `json:"keys"`
}
