package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agency-proxy.backend/internal/config"
	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/domain/repositories"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/metrics"
	"agency-proxy.backend/pkg/redis"
)

// DecisionRecorder keeps a cross-instance tally of quota outcomes
type DecisionRecorder interface {
	Record(ctx context.Context, ev redis.DecisionEvent) error
}

// QuotaUsecase makes the allow/deny decision for an authenticated identity
type QuotaUsecase struct {
	ledger  repositories.QuotaLedger
	mode    config.QuotaMode
	timeout time.Duration
	stats   DecisionRecorder
}

func NewQuotaUsecase(ledger repositories.QuotaLedger, mode config.QuotaMode, timeout time.Duration, stats DecisionRecorder) *QuotaUsecase {
	if mode != config.QuotaModeLenient {
		mode = config.QuotaModeStrict
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &QuotaUsecase{ledger: ledger, mode: mode, timeout: timeout, stats: stats}
}

// Mode returns the effective quota mode
func (u *QuotaUsecase) Mode() config.QuotaMode {
	return u.mode
}

// Authorize decides whether id may call endpoint.
// The master identity is always allowed without touching the ledger.
// In strict mode an allowed result already holds a reserved unit; see Finalize.
func (u *QuotaUsecase) Authorize(ctx context.Context, id *entities.Identity, endpoint string) (entities.AuthResult, error) {
	if id.IsMaster {
		// in-process counter only; the master path does no storage I/O
		metrics.QuotaDecision(endpoint, metrics.OutcomeMaster)
		return entities.Allowed(id, entities.UnlimitedQuota(), false), nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var (
		res entities.AuthResult
		err error
	)
	if u.mode == config.QuotaModeLenient {
		res, err = u.authorizeLenient(ctx, id)
	} else {
		res, err = u.authorizeStrict(ctx, id, endpoint)
	}
	metrics.ObserveQuotaCheck(string(u.mode), time.Since(start))

	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			// owner deleted after the key was validated
			u.RecordOutcome(ctx, endpoint, metrics.OutcomeInvalid)
			return entities.AuthResult{}, domainerrors.ErrInvalidCredential
		}
		u.RecordOutcome(ctx, endpoint, metrics.OutcomeStorageFailed)
		logger.Error(ctx, "Quota check failed", zap.String("endpoint", endpoint), zap.Error(err))
		return entities.AuthResult{}, fmt.Errorf("%w: %v", domainerrors.ErrStorageUnavailable, err)
	}

	if res.Kind == entities.AuthAllowed {
		u.RecordOutcome(ctx, endpoint, metrics.OutcomeAllowed)
	} else {
		u.RecordOutcome(ctx, endpoint, metrics.OutcomeDenied)
	}
	return res, nil
}

func (u *QuotaUsecase) authorizeStrict(ctx context.Context, id *entities.Identity, endpoint string) (entities.AuthResult, error) {
	c, err := u.ledger.Consume(ctx, id.UserID, id.ApiKeyID, endpoint)
	if err != nil {
		return entities.AuthResult{}, err
	}
	if !c.Allowed {
		return entities.Denied(entities.DenyQuotaExceeded, entities.QuotaMeta{Limit: c.Limit, Remaining: 0, Used: c.Used}), nil
	}
	res := entities.Allowed(id, entities.QuotaMeta{Limit: c.Limit, Remaining: nonNegative(c.Limit - c.Used), Used: c.Used}, true)
	res.Period = c.Period
	return res, nil
}

func (u *QuotaUsecase) authorizeLenient(ctx context.Context, id *entities.Identity) (entities.AuthResult, error) {
	total, limit, err := u.ledger.CheckAggregateUsage(ctx, id.UserID)
	if err != nil {
		return entities.AuthResult{}, err
	}
	if total >= limit {
		return entities.Denied(entities.DenyQuotaExceeded, entities.QuotaMeta{Limit: limit, Remaining: 0, Used: total}), nil
	}
	return entities.Allowed(id, entities.QuotaMeta{Limit: limit, Remaining: nonNegative(limit - total - 1), Used: total + 1}, false), nil
}

// Finalize settles the ledger once the handler has produced status.
// A reserved unit is released when the request failed (status >= 400);
// without a reservation the counter is incremented only for successful requests.
func (u *QuotaUsecase) Finalize(ctx context.Context, res entities.AuthResult, endpoint string, status int) error {
	if res.Kind != entities.AuthAllowed || res.Identity == nil || res.Identity.IsMaster {
		return nil
	}
	id := res.Identity
	failed := status >= 400

	switch {
	case res.Reserved && failed:
		if err := u.ledger.Release(ctx, id.UserID, id.ApiKeyID, endpoint, res.Period); err != nil {
			metrics.LedgerCommitFailed("release")
			logger.Error(ctx, "Failed to release reserved usage", zap.String("endpoint", endpoint), zap.Error(err))
			return err
		}
	case !res.Reserved && !failed:
		if _, err := u.ledger.Increment(ctx, id.UserID, id.ApiKeyID, endpoint); err != nil {
			metrics.LedgerCommitFailed("increment")
			logger.Error(ctx, "Failed to record usage", zap.String("endpoint", endpoint), zap.Error(err))
			return err
		}
	}
	return nil
}

// RecordOutcome counts a decision in prometheus and, when configured, in the shared redis tally.
// The redis write happens off the request path.
func (u *QuotaUsecase) RecordOutcome(ctx context.Context, endpoint, outcome string) {
	metrics.QuotaDecision(endpoint, outcome)
	if u.stats == nil {
		return
	}
	ev := redis.DecisionEvent{Endpoint: endpoint, Outcome: outcome, At: time.Now()}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := u.stats.Record(ctx, ev); err != nil {
			logger.Debug(ctx, "Failed to record decision stats", zap.Error(err))
		}
	}()
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
