package repositories

import (
	"context"

	"github.com/google/uuid"

	"agency-proxy.backend/internal/domain/entities"
)

// QuotaLedger is the per-user monthly usage store.
// The current period is derived from the ledger's own clock.
type QuotaLedger interface {
	// CheckAggregateUsage returns the user's total for the current period and the user's limit.
	CheckAggregateUsage(ctx context.Context, userID uuid.UUID) (total int64, limit int64, err error)
	// Increment adds one to the (user, key, endpoint, period) counter in a single statement.
	Increment(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string) (int64, error)
	// Consume increments only if the aggregate stays strictly below the limit. Never overshoots.
	Consume(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string) (entities.ConsumeResult, error)
	// Release gives back one unit taken by Consume in period. Counters never go below zero.
	Release(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string, period entities.Period) error
	// Reset deletes the user's rows for the current period.
	Reset(ctx context.Context, userID uuid.UUID) error
	UsageByKey(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]map[string]int64, error)
	DeleteByApiKeyID(ctx context.Context, apiKeyID uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	CurrentPeriod() entities.Period
}
