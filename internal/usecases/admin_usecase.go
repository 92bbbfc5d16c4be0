package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/domain/repositories"
	"agency-proxy.backend/pkg/crypto"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/utils"
)

const defaultKeyName = "Default Key"

var generateAPIKey = crypto.GenerateAPIKey

// AdminUsecase holds the operator-facing user, key and usage operations
type AdminUsecase struct {
	userRepo     repositories.UserRepository
	apiKeyRepo   repositories.ApiKeyRepository
	ledger       repositories.QuotaLedger
	logRepo      repositories.RequestLogRepository
	uow          repositories.UnitOfWork
	defaultLimit int64
	now          func() time.Time
}

func NewAdminUsecase(
	userRepo repositories.UserRepository,
	apiKeyRepo repositories.ApiKeyRepository,
	ledger repositories.QuotaLedger,
	logRepo repositories.RequestLogRepository,
	uow repositories.UnitOfWork,
	defaultLimit int64,
) *AdminUsecase {
	return &AdminUsecase{
		userRepo:     userRepo,
		apiKeyRepo:   apiKeyRepo,
		ledger:       ledger,
		logRepo:      logRepo,
		uow:          uow,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// CreateUser creates a user together with one active default key
func (u *AdminUsecase) CreateUser(ctx context.Context, input *entities.CreateUserInput) (*entities.CreateUserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" {
		return nil, domainerrors.BadRequest("email and name are required")
	}

	role := input.Role
	if role == "" {
		role = entities.UserRoleUser
	}
	if !role.Valid() {
		return nil, domainerrors.BadRequest("invalid role")
	}

	limit := u.defaultLimit
	if input.MonthlyLimit != nil {
		if *input.MonthlyLimit < 0 {
			return nil, domainerrors.BadRequest("monthly limit must not be negative")
		}
		limit = *input.MonthlyLimit
	}

	now := u.now()
	user := &entities.User{
		ID:           utils.GenerateUUIDv7(),
		Email:        email,
		Name:         name,
		Role:         role,
		MonthlyLimit: limit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.Password != "" {
		hash, err := crypto.HashPassword(input.Password)
		if err != nil {
			return nil, domainerrors.InternalError(err)
		}
		user.PasswordHash = hash
	}

	keyName := strings.TrimSpace(input.KeyName)
	if keyName == "" {
		keyName = defaultKeyName
	}

	var key *entities.ApiKey
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		if err := u.userRepo.Create(ctx, user); err != nil {
			return err
		}
		var err error
		key, err = u.newKey(ctx, user.ID, keyName)
		return err
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("email already registered")
		}
		return nil, err
	}

	logger.Info(ctx, "User created", zap.String("user_id", user.ID.String()), zap.Int64("monthly_limit", limit))
	return &entities.CreateUserResponse{User: user, ApiKey: key}, nil
}

// DeleteUser removes the user with its keys, usage rows and request logs
func (u *AdminUsecase) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return u.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
			return err
		}
		if err := u.logRepo.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := u.ledger.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := u.apiKeyRepo.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		return u.userRepo.Delete(ctx, userID)
	})
}

// ListUsers returns every user matching search with current period usage
func (u *AdminUsecase) ListUsers(ctx context.Context, search string) ([]*entities.UserWithUsage, error) {
	users, err := u.userRepo.List(ctx, search)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.UserWithUsage, 0, len(users))
	for _, user := range users {
		item, err := u.withUsage(ctx, user)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// GetUser returns one user with keys and current period usage
func (u *AdminUsecase) GetUser(ctx context.Context, userID uuid.UUID) (*entities.UserWithUsage, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.withUsage(ctx, user)
}

// SetMonthlyLimit changes the user's quota; it applies to the next request
func (u *AdminUsecase) SetMonthlyLimit(ctx context.Context, userID uuid.UUID, limit int64) (*entities.User, error) {
	if limit < 0 {
		return nil, domainerrors.BadRequest("monthly limit must not be negative")
	}
	return u.UpdateUser(ctx, userID, &entities.UpdateUserInput{MonthlyLimit: &limit})
}

// UpdateUser applies the non-nil fields of input
func (u *AdminUsecase) UpdateUser(ctx context.Context, userID uuid.UUID, input *entities.UpdateUserInput) (*entities.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.MonthlyLimit != nil {
		if *input.MonthlyLimit < 0 {
			return nil, domainerrors.BadRequest("monthly limit must not be negative")
		}
		user.MonthlyLimit = *input.MonthlyLimit
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, domainerrors.BadRequest("invalid role")
		}
		user.Role = *input.Role
	}
	if input.IsVerified != nil {
		user.IsVerified = *input.IsVerified
	}

	err = u.uow.Do(ctx, func(ctx context.Context) error {
		if err := u.userRepo.Update(ctx, user); err != nil {
			return err
		}
		if input.ResetUsage {
			return u.ledger.Reset(ctx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.UpdatedAt = u.now()
	return user, nil
}

// ResetUsage clears the user's current period counters
func (u *AdminUsecase) ResetUsage(ctx context.Context, userID uuid.UUID) error {
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := u.ledger.Reset(ctx, userID); err != nil {
		return err
	}
	logger.Info(ctx, "Usage reset", zap.String("user_id", userID.String()))
	return nil
}

// CreateKey issues a new active key for userID
func (u *AdminUsecase) CreateKey(ctx context.Context, userID uuid.UUID, name string) (*entities.ApiKey, error) {
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultKeyName
	}
	return u.newKey(ctx, userID, name)
}

// ListKeys returns the user's keys, oldest first
func (u *AdminUsecase) ListKeys(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return u.apiKeyRepo.FindByUserID(ctx, userID)
}

// ResolveKey finds a key by id or by its secret
func (u *AdminUsecase) ResolveKey(ctx context.Context, ref string) (*entities.ApiKey, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return u.apiKeyRepo.FindByID(ctx, id)
	}
	return u.apiKeyRepo.FindByKey(ctx, ref)
}

func (u *AdminUsecase) ActivateKey(ctx context.Context, keyID uuid.UUID) (*entities.ApiKey, error) {
	active := true
	return u.UpdateKey(ctx, keyID, &entities.UpdateApiKeyInput{IsActive: &active})
}

// DeactivateKey stops the key from authenticating; its usage history stays
func (u *AdminUsecase) DeactivateKey(ctx context.Context, keyID uuid.UUID) (*entities.ApiKey, error) {
	inactive := false
	return u.UpdateKey(ctx, keyID, &entities.UpdateApiKeyInput{IsActive: &inactive})
}

func (u *AdminUsecase) UpdateKey(ctx context.Context, keyID uuid.UUID, input *entities.UpdateApiKeyInput) (*entities.ApiKey, error) {
	key, err := u.apiKeyRepo.FindByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domainerrors.BadRequest("key name must not be empty")
		}
		key.Name = name
	}
	if input.IsActive != nil {
		key.IsActive = *input.IsActive
	}
	if err := u.apiKeyRepo.Update(ctx, key); err != nil {
		return nil, err
	}
	key.UpdatedAt = u.now()
	return key, nil
}

// DeleteKey removes the key and its usage rows. The owner's other keys keep their usage.
func (u *AdminUsecase) DeleteKey(ctx context.Context, keyID uuid.UUID) error {
	return u.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := u.apiKeyRepo.FindByID(ctx, keyID); err != nil {
			return err
		}
		if err := u.ledger.DeleteByApiKeyID(ctx, keyID); err != nil {
			return err
		}
		return u.apiKeyRepo.Delete(ctx, keyID)
	})
}

// GetUserUsage returns the current period breakdown per key and endpoint
func (u *AdminUsecase) GetUserUsage(ctx context.Context, userID uuid.UUID) (*entities.UsageSummary, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys, err := u.apiKeyRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	byKey, err := u.ledger.UsageByKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &entities.UsageSummary{
		UserID: userID,
		Period: u.ledger.CurrentPeriod(),
		Limit:  user.MonthlyLimit,
		Keys:   make([]*entities.KeyUsage, 0, len(keys)),
	}
	for _, k := range keys {
		ku := &entities.KeyUsage{ApiKeyID: k.ID, Name: k.Name, IsActive: k.IsActive, ByEndpoint: map[string]int64{}}
		for endpoint, n := range byKey[k.ID] {
			ku.ByEndpoint[endpoint] = n
			ku.Total += n
		}
		summary.Used += ku.Total
		summary.Keys = append(summary.Keys, ku)
	}
	summary.Remaining = nonNegative(summary.Limit - summary.Used)
	return summary, nil
}

// ListRequestLogs pages through the user's request logs, newest first
func (u *AdminUsecase) ListRequestLogs(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.RequestLog, utils.PaginationMeta, error) {
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return nil, utils.PaginationMeta{}, err
	}
	logs, total, err := u.logRepo.ListByUserID(ctx, userID, pagination)
	if err != nil {
		return nil, utils.PaginationMeta{}, err
	}
	return logs, utils.CalculateMeta(total, pagination.Page, pagination.Limit), nil
}

func (u *AdminUsecase) withUsage(ctx context.Context, user *entities.User) (*entities.UserWithUsage, error) {
	keys, err := u.apiKeyRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	used, limit, err := u.ledger.CheckAggregateUsage(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &entities.UserWithUsage{
		User:      *user,
		ApiKeys:   keys,
		Used:      used,
		Remaining: nonNegative(limit - used),
		Period:    u.ledger.CurrentPeriod(),
	}, nil
}

func (u *AdminUsecase) newKey(ctx context.Context, userID uuid.UUID, name string) (*entities.ApiKey, error) {
	secret, err := generateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	now := u.now()
	key := &entities.ApiKey{
		ID:        utils.GenerateUUIDv7(),
		Key:       secret,
		UserID:    userID,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.apiKeyRepo.Create(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}
