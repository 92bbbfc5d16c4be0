package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/interfaces/http/response"
	"agency-proxy.backend/internal/usecases"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/metrics"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitUsed      = "X-RateLimit-Used"

	// masterHeaderValue is what the unlimited identity reports in the rate-limit headers
	masterHeaderValue = 999999

	commitTimeout = 5 * time.Second
)

// CredentialValidator turns a raw credential into an identity
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, raw string) (*entities.Identity, error)
	TouchLastUsed(ctx context.Context, apiKeyID uuid.UUID) error
}

// QuotaAuthorizer makes and settles the monthly quota decision
type QuotaAuthorizer interface {
	Authorize(ctx context.Context, id *entities.Identity, endpoint string) (entities.AuthResult, error)
	Finalize(ctx context.Context, res entities.AuthResult, endpoint string, status int) error
	RecordOutcome(ctx context.Context, endpoint, outcome string)
}

// UsageSink receives one request log per authenticated request
type UsageSink interface {
	Record(entry entities.RequestLog)
}

// afterResponse runs the post-response bookkeeping; tests swap it for a synchronous call
var afterResponse = func(f func()) { go f() }

// QuotaAuthMiddleware authenticates the caller and enforces the per-user monthly quota.
// Rejections are terminal: nothing is counted and no request log is written.
func QuotaAuthMiddleware(validator CredentialValidator, quota QuotaAuthorizer, sink UsageSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		raw, err := usecases.ResolveCredential(c.Request.Header)
		if err != nil {
			quota.RecordOutcome(ctx, endpoint, metrics.OutcomeMissing)
			response.Abort(c, err)
			return
		}

		id, err := validator.ValidateCredential(ctx, raw)
		if err != nil {
			if errors.Is(err, domainerrors.ErrInvalidCredential) {
				quota.RecordOutcome(ctx, endpoint, metrics.OutcomeInvalid)
			} else {
				quota.RecordOutcome(ctx, endpoint, metrics.OutcomeStorageFailed)
				logger.Error(ctx, "Credential lookup failed", zap.String("endpoint", endpoint), zap.Error(err))
			}
			response.Abort(c, err)
			return
		}

		res, err := quota.Authorize(ctx, id, endpoint)
		if err != nil {
			response.Abort(c, err)
			return
		}
		setRateLimitHeaders(c, res.Meta)

		if res.Kind != entities.AuthAllowed {
			logger.Info(ctx, "Monthly quota exceeded",
				zap.String("user_id", id.UserID.String()),
				zap.String("endpoint", endpoint),
				zap.Int64("limit", res.Meta.Limit),
			)
			response.Abort(c, domainerrors.ErrQuotaExceeded)
			return
		}

		c.Set(IdentityKey, id)
		start := time.Now()
		c.Next()

		if id.IsMaster {
			return
		}

		entry := entities.RequestLog{
			UserID:     id.UserID,
			ApiKeyID:   id.ApiKeyID,
			Endpoint:   endpoint,
			Method:     c.Request.Method,
			Status:     c.Writer.Status(),
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			DurationMs: time.Since(start).Milliseconds(),
			CreatedAt:  start,
		}
		detached := context.WithoutCancel(ctx)
		afterResponse(func() {
			ctx, cancel := context.WithTimeout(detached, commitTimeout)
			defer cancel()

			// Finalize logs and counts its own failures
			_ = quota.Finalize(ctx, res, endpoint, entry.Status)
			if entry.Status < 400 {
				if err := validator.TouchLastUsed(ctx, id.ApiKeyID); err != nil {
					logger.Warn(ctx, "Failed to touch api key", zap.String("api_key_id", id.ApiKeyID.String()), zap.Error(err))
				}
			}
			sink.Record(entry)
		})
	}
}

func setRateLimitHeaders(c *gin.Context, meta entities.QuotaMeta) {
	if meta.Unlimited {
		v := strconv.Itoa(masterHeaderValue)
		c.Header(HeaderRateLimitLimit, v)
		c.Header(HeaderRateLimitRemaining, v)
		c.Header(HeaderRateLimitUsed, "0")
		return
	}
	c.Header(HeaderRateLimitLimit, strconv.FormatInt(meta.Limit, 10))
	c.Header(HeaderRateLimitRemaining, strconv.FormatInt(meta.Remaining, 10))
	c.Header(HeaderRateLimitUsed, strconv.FormatInt(meta.Used, 10))
}
