package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"agency-proxy.backend/internal/domain/entities"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'USER',
		monthly_limit INTEGER NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createApiKeyTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE api_keys (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL,
		last_used_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createUsageTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE usage_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		api_key_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, api_key_id, endpoint, month, year)
	);`)
}

func createRequestLogTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE request_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		api_key_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		method TEXT NOT NULL,
		status INTEGER NOT NULL,
		ip TEXT,
		user_agent TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	);`)
}

func createAllTables(t *testing.T, db *gorm.DB) {
	createUserTable(t, db)
	createApiKeyTable(t, db)
	createUsageTable(t, db)
	createRequestLogTable(t, db)
}

func seedUser(t *testing.T, db *gorm.DB, limit int64) *entities.User {
	t.Helper()
	now := time.Now()
	u := &entities.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s@agencias.test", uuid.NewString()[:8]),
		Name:         "Test User",
		Role:         entities.UserRoleUser,
		MonthlyLimit: limit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedKey(t *testing.T, db *gorm.DB, userID uuid.UUID, active bool) *entities.ApiKey {
	t.Helper()
	now := time.Now()
	k := &entities.ApiKey{
		ID:        uuid.New(),
		Key:       "sk_test_" + uuid.NewString(),
		UserID:    userID,
		Name:      "default",
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, NewApiKeyRepository(db).Create(context.Background(), k))
	return k
}
