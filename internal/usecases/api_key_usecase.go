package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/domain/repositories"
	"agency-proxy.backend/pkg/crypto"
	"agency-proxy.backend/pkg/logger"
)

// ApiKeyUsecase turns a raw credential into an Identity
type ApiKeyUsecase struct {
	apiKeyRepo repositories.ApiKeyRepository
	userRepo   repositories.UserRepository
	masterKey  string
	timeout    time.Duration
	now        func() time.Time
}

// NewApiKeyUsecase creates the validator. An empty masterKey disables the master identity.
// timeout bounds the key and owner lookups of a single validation.
func NewApiKeyUsecase(apiKeyRepo repositories.ApiKeyRepository, userRepo repositories.UserRepository, masterKey string, timeout time.Duration) *ApiKeyUsecase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ApiKeyUsecase{
		apiKeyRepo: apiKeyRepo,
		userRepo:   userRepo,
		masterKey:  masterKey,
		timeout:    timeout,
		now:        time.Now,
	}
}

// IsMaster reports whether raw is the configured master key
func (u *ApiKeyUsecase) IsMaster(raw string) bool {
	return u.masterKey != "" && crypto.ConstantTimeEqual(raw, u.masterKey)
}

// ValidateCredential resolves raw to the master identity or to the owner of an active key.
// Unknown and inactive keys both return ErrInvalidCredential; lookup failures return ErrStorageUnavailable.
func (u *ApiKeyUsecase) ValidateCredential(ctx context.Context, raw string) (*entities.Identity, error) {
	if raw == "" {
		return nil, domainerrors.ErrMissingCredential
	}
	if u.IsMaster(raw) {
		return entities.MasterIdentity(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	key, err := u.apiKeyRepo.FindByKey(ctx, raw)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Debug(ctx, "Unknown api key presented")
			return nil, domainerrors.ErrInvalidCredential
		}
		return nil, fmt.Errorf("%w: find api key: %v", domainerrors.ErrStorageUnavailable, err)
	}
	if !key.IsActive {
		logger.Debug(ctx, "Inactive api key presented", zap.String("api_key_id", key.ID.String()))
		return nil, domainerrors.ErrInvalidCredential
	}

	owner := key.User
	if owner == nil {
		owner, err = u.userRepo.GetByID(ctx, key.UserID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.ErrInvalidCredential
			}
			return nil, fmt.Errorf("%w: load key owner: %v", domainerrors.ErrStorageUnavailable, err)
		}
	}

	return &entities.Identity{
		UserID:       owner.ID,
		ApiKeyID:     key.ID,
		MonthlyLimit: owner.MonthlyLimit,
	}, nil
}

// TouchLastUsed stamps the key after a served request
func (u *ApiKeyUsecase) TouchLastUsed(ctx context.Context, apiKeyID uuid.UUID) error {
	return u.apiKeyRepo.TouchLastUsed(ctx, apiKeyID, u.now())
}
