package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/pkg/metrics"
)

type stubValidator struct {
	identities map[string]*entities.Identity
	err        error
	touched    []uuid.UUID
}

func (s *stubValidator) ValidateCredential(_ context.Context, raw string) (*entities.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if raw == "master" {
		return entities.MasterIdentity(), nil
	}
	id, ok := s.identities[raw]
	if !ok {
		return nil, domainerrors.ErrInvalidCredential
	}
	return id, nil
}

func (s *stubValidator) TouchLastUsed(_ context.Context, id uuid.UUID) error {
	s.touched = append(s.touched, id)
	return nil
}

func (s *stubValidator) IsMaster(raw string) bool { return raw == "master" }

type finalizeCall struct {
	endpoint string
	status   int
}

type stubQuota struct {
	result    entities.AuthResult
	err       error
	authorize int
	finalized []finalizeCall
	outcomes  []string
}

func (s *stubQuota) Authorize(_ context.Context, id *entities.Identity, _ string) (entities.AuthResult, error) {
	s.authorize++
	if s.err != nil {
		return entities.AuthResult{}, s.err
	}
	if id.IsMaster {
		return entities.Allowed(id, entities.UnlimitedQuota(), false), nil
	}
	res := s.result
	if res.Kind == entities.AuthAllowed {
		res.Identity = id
	}
	return res, nil
}

func (s *stubQuota) Finalize(_ context.Context, _ entities.AuthResult, endpoint string, status int) error {
	s.finalized = append(s.finalized, finalizeCall{endpoint: endpoint, status: status})
	return nil
}

func (s *stubQuota) RecordOutcome(_ context.Context, _ string, outcome string) {
	s.outcomes = append(s.outcomes, outcome)
}

type stubSink struct {
	mu      sync.Mutex
	entries []entities.RequestLog
}

func (s *stubSink) Record(entry entities.RequestLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

type quotaFixture struct {
	router    *gin.Engine
	validator *stubValidator
	quota     *stubQuota
	sink      *stubSink
	identity  *entities.Identity
}

func newQuotaFixture(t *testing.T, status int) *quotaFixture {
	t.Helper()
	prev := afterResponse
	afterResponse = func(f func()) { f() }
	t.Cleanup(func() { afterResponse = prev })

	id := &entities.Identity{UserID: uuid.New(), ApiKeyID: uuid.New(), MonthlyLimit: 5}
	f := &quotaFixture{
		validator: &stubValidator{identities: map[string]*entities.Identity{"sk_live": id}},
		quota:     &stubQuota{result: entities.Allowed(nil, entities.QuotaMeta{Limit: 5, Remaining: 4, Used: 1}, true)},
		sink:      &stubSink{},
		identity:  id,
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(QuotaAuthMiddleware(f.validator, f.quota, f.sink))
	r.GET("/api/agencia", func(c *gin.Context) {
		got, ok := GetIdentity(c)
		require.True(t, ok)
		require.NotNil(t, got)
		c.JSON(status, gin.H{"ok": status < 400})
	})
	f.router = r
	return f
}

func (f *quotaFixture) get(headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/agencia?q=lima", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestQuotaAuthMiddleware_AllowedUser(t *testing.T) {
	f := newQuotaFixture(t, http.StatusOK)

	rec := f.get(map[string]string{"x-api-key": "sk_live", "User-Agent": "agency-client/1.0"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "4", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "1", rec.Header().Get(HeaderRateLimitUsed))

	require.Len(t, f.quota.finalized, 1)
	assert.Equal(t, finalizeCall{endpoint: "/api/agencia", status: http.StatusOK}, f.quota.finalized[0])
	assert.Equal(t, []uuid.UUID{f.identity.ApiKeyID}, f.validator.touched)

	require.Len(t, f.sink.entries, 1)
	entry := f.sink.entries[0]
	assert.Equal(t, f.identity.UserID, entry.UserID)
	assert.Equal(t, f.identity.ApiKeyID, entry.ApiKeyID)
	assert.Equal(t, "/api/agencia", entry.Endpoint)
	assert.Equal(t, http.MethodGet, entry.Method)
	assert.Equal(t, "agency-client/1.0", entry.UserAgent)
}

func TestQuotaAuthMiddleware_BearerCredential(t *testing.T) {
	f := newQuotaFixture(t, http.StatusOK)
	rec := f.get(map[string]string{"Authorization": "Bearer sk_live"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestQuotaAuthMiddleware_HandlerFailureIsStillSettled(t *testing.T) {
	f := newQuotaFixture(t, http.StatusNotFound)

	rec := f.get(map[string]string{"x-api-key": "sk_live"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, f.quota.finalized, 1)
	assert.Equal(t, http.StatusNotFound, f.quota.finalized[0].status)
	assert.Empty(t, f.validator.touched)
	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, http.StatusNotFound, f.sink.entries[0].Status)
}

func TestQuotaAuthMiddleware_MasterSkipsBookkeeping(t *testing.T) {
	f := newQuotaFixture(t, http.StatusOK)

	rec := f.get(map[string]string{"x-api-key": "master"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "999999", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "999999", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitUsed))
	assert.Empty(t, f.quota.finalized)
	assert.Empty(t, f.sink.entries)
	assert.Empty(t, f.validator.touched)
}

func TestQuotaAuthMiddleware_Rejections(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		f := newQuotaFixture(t, http.StatusOK)
		rec := f.get(map[string]string{"Authorization": "Basic abc"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), domainerrors.CodeUnauthorized)
		assert.Zero(t, f.quota.authorize)
		assert.Equal(t, []string{metrics.OutcomeMissing}, f.quota.outcomes)
	})

	t.Run("unknown and inactive share one answer", func(t *testing.T) {
		f := newQuotaFixture(t, http.StatusOK)
		rec := f.get(map[string]string{"x-api-key": "sk_unknown"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), domainerrors.ErrInvalidCredential.Error())
		assert.Equal(t, []string{metrics.OutcomeInvalid}, f.quota.outcomes)
	})

	t.Run("storage failure fails closed", func(t *testing.T) {
		f := newQuotaFixture(t, http.StatusOK)
		f.validator.err = errors.New("db down")
		rec := f.get(map[string]string{"x-api-key": "sk_live"})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})

	t.Run("quota storage failure", func(t *testing.T) {
		f := newQuotaFixture(t, http.StatusOK)
		f.quota.err = domainerrors.ErrStorageUnavailable
		rec := f.get(map[string]string{"x-api-key": "sk_live"})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, f.sink.entries)
	})

	t.Run("quota exceeded carries headers", func(t *testing.T) {
		f := newQuotaFixture(t, http.StatusOK)
		f.quota.result = entities.Denied(entities.DenyQuotaExceeded, entities.QuotaMeta{Limit: 5, Remaining: 0, Used: 5})
		rec := f.get(map[string]string{"x-api-key": "sk_live"})
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
		assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitUsed))
		assert.Contains(t, rec.Body.String(), domainerrors.CodeTooManyRequests)
		assert.Empty(t, f.quota.finalized)
		assert.Empty(t, f.sink.entries)
	})
}

func TestMasterOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MasterOnly(&stubValidator{}))
	r.POST("/api/sync", func(c *gin.Context) {
		id, ok := GetIdentity(c)
		require.True(t, ok)
		require.True(t, id.IsMaster)
		c.Status(http.StatusOK)
	})

	call := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
		if key != "" {
			req.Header.Set("x-api-key", key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("master"))
	assert.Equal(t, http.StatusForbidden, call("sk_live"))
	assert.Equal(t, http.StatusUnauthorized, call(""))
}

func TestGetIdentity_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetIdentity(c)
	assert.False(t, ok)
	assert.Equal(t, "anonymous", identityScope(c))

	c.Set(IdentityKey, entities.MasterIdentity())
	assert.Equal(t, "master", identityScope(c))
}
