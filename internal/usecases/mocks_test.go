package usecases_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/pkg/redis"
	"agency-proxy.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, search string) ([]*entities.User, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

// Mock ApiKeyRepository
type MockApiKeyRepository struct {
	mock.Mock
}

func (m *MockApiKeyRepository) Create(ctx context.Context, apiKey *entities.ApiKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockApiKeyRepository) FindByKey(ctx context.Context, key string) (*entities.ApiKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ApiKey), args.Error(1)
}

func (m *MockApiKeyRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ApiKey), args.Error(1)
}

func (m *MockApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ApiKey), args.Error(1)
}

func (m *MockApiKeyRepository) Update(ctx context.Context, apiKey *entities.ApiKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockApiKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockApiKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockApiKeyRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Mock QuotaLedger
type MockQuotaLedger struct {
	mock.Mock
}

func (m *MockQuotaLedger) CheckAggregateUsage(ctx context.Context, userID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuotaLedger) Increment(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string) (int64, error) {
	args := m.Called(ctx, userID, apiKeyID, endpoint)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuotaLedger) Consume(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string) (entities.ConsumeResult, error) {
	args := m.Called(ctx, userID, apiKeyID, endpoint)
	return args.Get(0).(entities.ConsumeResult), args.Error(1)
}

func (m *MockQuotaLedger) Release(ctx context.Context, userID, apiKeyID uuid.UUID, endpoint string, period entities.Period) error {
	args := m.Called(ctx, userID, apiKeyID, endpoint, period)
	return args.Error(0)
}

func (m *MockQuotaLedger) Reset(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockQuotaLedger) UsageByKey(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]map[string]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]map[string]int64), args.Error(1)
}

func (m *MockQuotaLedger) DeleteByApiKeyID(ctx context.Context, apiKeyID uuid.UUID) error {
	args := m.Called(ctx, apiKeyID)
	return args.Error(0)
}

func (m *MockQuotaLedger) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockQuotaLedger) CurrentPeriod() entities.Period {
	args := m.Called()
	return args.Get(0).(entities.Period)
}

// Mock RequestLogRepository
type MockRequestLogRepository struct {
	mock.Mock
}

func (m *MockRequestLogRepository) Create(ctx context.Context, entry *entities.RequestLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRequestLogRepository) ListByUserID(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.RequestLog, int64, error) {
	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.RequestLog), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestLogRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Mock DatasetStore
type MockDatasetStore struct {
	mock.Mock
}

func (m *MockDatasetStore) Agencies(ctx context.Context) ([]*entities.Agency, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Agency), args.Error(1)
}

func (m *MockDatasetStore) Raw(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockDatasetStore) Replace(ctx context.Context, doc []byte) (int, error) {
	args := m.Called(ctx, doc)
	return args.Int(0), args.Error(1)
}

func (m *MockDatasetStore) Status() entities.DatasetStatus {
	args := m.Called()
	return args.Get(0).(entities.DatasetStatus)
}

// Mock DatasetRefresher
type MockDatasetRefresher struct {
	mock.Mock
}

func (m *MockDatasetRefresher) RunOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockDatasetRefresher) NextRun() *time.Time {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*time.Time)
}

func (m *MockDatasetRefresher) Schedule() string {
	args := m.Called()
	return args.String(0)
}

// Mock DecisionRecorder
type MockDecisionRecorder struct {
	mock.Mock
}

func (m *MockDecisionRecorder) Record(ctx context.Context, ev redis.DecisionEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
