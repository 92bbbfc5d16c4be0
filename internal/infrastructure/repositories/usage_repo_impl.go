package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/infrastructure/models"
	"agency-proxy.backend/pkg/utils"
)

const upsertUsageSQL = `INSERT INTO usage_records (id, user_id, api_key_id, endpoint, month, year, count)
VALUES (?, ?, ?, ?, ?, ?, 1)
ON CONFLICT (user_id, api_key_id, endpoint, month, year)
DO UPDATE SET count = usage_records.count + 1
RETURNING count`

// The insert only happens while the user's period total is below the limit.
// Zero rows affected means the quota is exhausted. Postgres cannot infer the types of
// bare parameters in a SELECT list, so they are cast there.
const guardedUpsertUsageSQL = `INSERT INTO usage_records (id, user_id, api_key_id, endpoint, month, year, count)
SELECT %s
WHERE (SELECT COALESCE(SUM(count), 0) FROM usage_records WHERE user_id = ? AND month = ? AND year = ?) < ?
ON CONFLICT (user_id, api_key_id, endpoint, month, year)
DO UPDATE SET count = usage_records.count + 1`

func guardedUpsertSQL(dialect string) string {
	if dialect == "postgres" {
		return fmt.Sprintf(guardedUpsertUsageSQL, "CAST(? AS uuid), CAST(? AS uuid), CAST(? AS uuid), CAST(? AS varchar), CAST(? AS integer), CAST(? AS integer), 1")
	}
	return fmt.Sprintf(guardedUpsertUsageSQL, "?, ?, ?, ?, ?, ?, 1")
}

// UsageRepository is the GORM quota ledger
type UsageRepository struct {
	db  *gorm.DB
	now func() time.Time
	loc *time.Location
}

type UsageOption func(*UsageRepository)

// WithClock overrides the clock used to pick the current period
func WithClock(now func() time.Time) UsageOption {
	return func(r *UsageRepository) { r.now = now }
}

// WithLocation sets the timezone month boundaries are evaluated in
func WithLocation(loc *time.Location) UsageOption {
	return func(r *UsageRepository) { r.loc = loc }
}

// NewUsageRepository creates a new usage ledger
func NewUsageRepository(db *gorm.DB, opts ...UsageOption) *UsageRepository {
	r := &UsageRepository{db: db, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CurrentPeriod returns the month bucket for the ledger's clock
func (r *UsageRepository) CurrentPeriod() entities.Period {
	return entities.PeriodOf(r.now(), r.loc)
}

// CheckAggregateUsage sums the user's usage for the current period
func (r *UsageRepository) CheckAggregateUsage(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	db := GetDB(ctx, r.db)
	limit, err := r.userLimit(db, userID, false)
	if err != nil {
		return 0, 0, err
	}
	total, err := r.sumPeriod(db, userID, r.CurrentPeriod())
	if err != nil {
		return 0, 0, err
	}
	return total, limit, nil
}

// Increment upserts the counter for (user, key, endpoint, period) and returns the new count
func (r *UsageRepository) Increment(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string) (int64, error) {
	p := r.CurrentPeriod()
	var count int64
	err := GetDB(ctx, r.db).
		Raw(upsertUsageSQL, utils.GenerateUUIDv7(), userID, apiKeyID, endpoint, p.Month, p.Year).
		Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return count, nil
}

// Consume is the atomic check-and-increment. On postgres the user row is locked so
// concurrent consumers of the same user serialize; sqlite serializes writers itself.
func (r *UsageRepository) Consume(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string) (entities.ConsumeResult, error) {
	p := r.CurrentPeriod()
	res := entities.ConsumeResult{Period: p}

	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		limit, err := r.userLimit(tx, userID, true)
		if err != nil {
			return err
		}
		res.Limit = limit

		result := tx.Exec(guardedUpsertSQL(tx.Dialector.Name()),
			utils.GenerateUUIDv7(), userID, apiKeyID, endpoint, p.Month, p.Year,
			userID, p.Month, p.Year, limit,
		)
		if result.Error != nil {
			return fmt.Errorf("consume usage: %w", result.Error)
		}
		res.Allowed = result.RowsAffected > 0

		used, err := r.sumPeriod(tx, userID, p)
		if err != nil {
			return err
		}
		res.Used = used
		return nil
	})
	if err != nil {
		return entities.ConsumeResult{}, err
	}
	return res, nil
}

// Release decrements a counter taken by Consume, never below zero
func (r *UsageRepository) Release(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string, period entities.Period) error {
	return GetDB(ctx, r.db).
		Model(&models.UsageRecord{}).
		Where("user_id = ? AND api_key_id = ? AND endpoint = ? AND month = ? AND year = ? AND count > 0",
			userID, apiKeyID, endpoint, period.Month, period.Year).
		UpdateColumn("count", gorm.Expr("count - 1")).Error
}

// Reset deletes the user's rows for the current period
func (r *UsageRepository) Reset(ctx context.Context, userID uuid.UUID) error {
	p := r.CurrentPeriod()
	return GetDB(ctx, r.db).
		Where("user_id = ? AND month = ? AND year = ?", userID, p.Month, p.Year).
		Delete(&models.UsageRecord{}).Error
}

// UsageByKey returns current period counts keyed by api key then endpoint
func (r *UsageRepository) UsageByKey(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]map[string]int64, error) {
	p := r.CurrentPeriod()
	var rows []models.UsageRecord
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND month = ? AND year = ?", userID, p.Month, p.Year).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]map[string]int64)
	for _, row := range rows {
		if out[row.ApiKeyID] == nil {
			out[row.ApiKeyID] = make(map[string]int64)
		}
		out[row.ApiKeyID][row.Endpoint] += row.Count
	}
	return out, nil
}

// DeleteByApiKeyID removes every counter of a key across all periods
func (r *UsageRepository) DeleteByApiKeyID(ctx context.Context, apiKeyID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("api_key_id = ?", apiKeyID).Delete(&models.UsageRecord{}).Error
}

// DeleteByUserID removes every counter of a user across all periods
func (r *UsageRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&models.UsageRecord{}).Error
}

func (r *UsageRepository) userLimit(db *gorm.DB, userID uuid.UUID, lock bool) (int64, error) {
	q := db.Model(&models.User{}).Select("monthly_limit").Where("id = ?", userID)
	if lock && db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m models.User
	if err := q.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domainerrors.ErrNotFound
		}
		return 0, err
	}
	return m.MonthlyLimit, nil
}

func (r *UsageRepository) sumPeriod(db *gorm.DB, userID uuid.UUID, p entities.Period) (int64, error) {
	var total int64
	err := db.Model(&models.UsageRecord{}).
		Select("COALESCE(SUM(count), 0)").
		Where("user_id = ? AND month = ? AND year = ?", userID, p.Month, p.Year).
		Scan(&total).Error
	return total, err
}
