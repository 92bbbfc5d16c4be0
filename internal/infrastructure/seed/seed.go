package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/domain/repositories"
	"agency-proxy.backend/pkg/crypto"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/utils"
)

// File is the bootstrap document
type File struct {
	Users []User `yaml:"users"`
}

type User struct {
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Password     string `yaml:"password"`
	Role         string `yaml:"role"`
	MonthlyLimit int64  `yaml:"monthly_limit"`
	Verified     bool   `yaml:"verified"`
	Keys         []Key  `yaml:"keys"`
}

type Key struct {
	Name   string `yaml:"name"`
	Key    string `yaml:"key"`
	Active *bool  `yaml:"active"`
}

// Result counts what Apply created
type Result struct {
	UsersCreated int
	KeysCreated  int
}

// Parse decodes and validates a seed document
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, u := range f.Users {
		if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Name) == "" {
			return nil, fmt.Errorf("seed user %d: email and name are required: %w", i, domainerrors.ErrInvalidInput)
		}
		if u.Role != "" && !entities.UserRole(u.Role).Valid() {
			return nil, fmt.Errorf("seed user %s: unknown role %q: %w", u.Email, u.Role, domainerrors.ErrInvalidInput)
		}
		if u.MonthlyLimit < 0 {
			return nil, fmt.Errorf("seed user %s: negative monthly_limit: %w", u.Email, domainerrors.ErrInvalidInput)
		}
	}
	return &f, nil
}

// Loader applies a seed file. Existing users (by email) and keys (by secret) are left untouched.
type Loader struct {
	userRepo     repositories.UserRepository
	apiKeyRepo   repositories.ApiKeyRepository
	uow          repositories.UnitOfWork
	defaultLimit int64
	now          func() time.Time
}

func NewLoader(userRepo repositories.UserRepository, apiKeyRepo repositories.ApiKeyRepository, uow repositories.UnitOfWork, defaultLimit int64) *Loader {
	return &Loader{
		userRepo:     userRepo,
		apiKeyRepo:   apiKeyRepo,
		uow:          uow,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// LoadFile reads path and applies it. An empty path is a no-op.
func (l *Loader) LoadFile(ctx context.Context, path string) (Result, error) {
	if path == "" {
		return Result{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return Result{}, err
	}
	return l.Apply(ctx, f)
}

func (l *Loader) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result
	for _, su := range f.Users {
		err := l.uow.Do(ctx, func(ctx context.Context) error {
			user, created, err := l.ensureUser(ctx, su)
			if err != nil {
				return err
			}
			if created {
				res.UsersCreated++
			}
			for _, sk := range su.Keys {
				ok, err := l.ensureKey(ctx, user.ID, sk)
				if err != nil {
					return err
				}
				if ok {
					res.KeysCreated++
				}
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", su.Email, err)
		}
	}

	logger.Info(ctx, "Seed applied", zap.Int("users_created", res.UsersCreated), zap.Int("keys_created", res.KeysCreated))
	return res, nil
}

func (l *Loader) ensureUser(ctx context.Context, su User) (*entities.User, bool, error) {
	existing, err := l.userRepo.GetByEmail(ctx, su.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, false, err
	}

	role := entities.UserRoleUser
	if su.Role != "" {
		role = entities.UserRole(su.Role)
	}
	limit := su.MonthlyLimit
	if limit == 0 {
		limit = l.defaultLimit
	}

	now := l.now()
	user := &entities.User{
		ID:           utils.GenerateUUIDv7(),
		Email:        su.Email,
		Name:         su.Name,
		Role:         role,
		MonthlyLimit: limit,
		IsVerified:   su.Verified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if su.Password != "" {
		hash, err := crypto.HashPassword(su.Password)
		if err != nil {
			return nil, false, err
		}
		user.PasswordHash = hash
	}
	if err := l.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (l *Loader) ensureKey(ctx context.Context, userID uuid.UUID, sk Key) (bool, error) {
	secret := sk.Key
	if secret != "" {
		_, err := l.apiKeyRepo.FindByKey(ctx, secret)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return false, err
		}
	} else {
		// Generated keys are only created together with a new user; re-applying must not add more.
		keys, err := l.apiKeyRepo.FindByUserID(ctx, userID)
		if err != nil {
			return false, err
		}
		for _, k := range keys {
			if k.Name == keyName(sk) {
				return false, nil
			}
		}
		secret, err = crypto.GenerateAPIKey()
		if err != nil {
			return false, err
		}
	}

	active := true
	if sk.Active != nil {
		active = *sk.Active
	}
	now := l.now()
	key := &entities.ApiKey{
		ID:        utils.GenerateUUIDv7(),
		Key:       secret,
		UserID:    userID,
		Name:      keyName(sk),
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.apiKeyRepo.Create(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func keyName(k Key) string {
	if strings.TrimSpace(k.Name) == "" {
		return "Default Key"
	}
	return k.Name
}
