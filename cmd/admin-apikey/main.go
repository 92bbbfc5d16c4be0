package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"agency-proxy.backend/internal/config"
	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/internal/infrastructure/datasources"
	"agency-proxy.backend/internal/infrastructure/repositories"
	"agency-proxy.backend/internal/usecases"
)

const usage = `usage: admin-apikey <command> [flags]

commands:
  create-user  -email E -name N [-limit L]   create a user with a default key
  create-key   -user-id U [-name N]          issue a new key for a user
  list-keys    -user-id U                    list a user's keys and current usage
  activate     -key K                        re-enable a key (K is the id or the secret)
  deactivate   -key K                        stop a key from authenticating
  delete-key   -key K                        delete a key and its usage counters
  reset-usage  -user-id U                    clear the user's usage for the current month
  set-limit    -user-id U -limit L           change the user's monthly limit
`

var errUsage = errors.New("invalid usage")

var openAdminDB = datasources.Open

var openAdminSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

// adminRuntime is the slice of the admin usecase the CLI drives
type adminRuntime interface {
	CreateUser(ctx context.Context, input *entities.CreateUserInput) (*entities.CreateUserResponse, error)
	CreateKey(ctx context.Context, userID uuid.UUID, name string) (*entities.ApiKey, error)
	ListKeys(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error)
	ResolveKey(ctx context.Context, ref string) (*entities.ApiKey, error)
	ActivateKey(ctx context.Context, keyID uuid.UUID) (*entities.ApiKey, error)
	DeactivateKey(ctx context.Context, keyID uuid.UUID) (*entities.ApiKey, error)
	DeleteKey(ctx context.Context, keyID uuid.UUID) error
	ResetUsage(ctx context.Context, userID uuid.UUID) error
	SetMonthlyLimit(ctx context.Context, userID uuid.UUID, limit int64) (*entities.User, error)
	GetUserUsage(ctx context.Context, userID uuid.UUID) (*entities.UsageSummary, error)
}

type adminDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (adminRuntime, io.Closer, error)
	now     func() time.Time
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func prepareRuntime(cfg *config.Config) (adminRuntime, io.Closer, error) {
	db, err := openAdminDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect db: %w", err)
	}
	sqlDB, err := openAdminSQLDB(db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
	}

	usageRepo := repositories.NewUsageRepository(db, repositories.WithLocation(cfg.Quota.Location()))
	admin := usecases.NewAdminUsecase(
		repositories.NewUserRepository(db),
		repositories.NewApiKeyRepository(db),
		usageRepo,
		repositories.NewRequestLogRepository(db),
		repositories.NewUnitOfWork(db),
		cfg.Quota.DefaultMonthlyLimit,
	)
	return admin, sqlDB, nil
}

func defaultAdminDeps() adminDeps {
	return adminDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: prepareRuntime,
		now:     time.Now,
		out:     os.Stdout,
	}
}

func parseUserID(userID string) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, fmt.Errorf("-user-id is required: %w", errUsage)
	}
	return uuid.Parse(userID)
}

func resolveKeyName(input string, now time.Time) string {
	if input != "" {
		return input
	}
	return fmt.Sprintf("cli-%s", now.Format("20060102-150405"))
}

func runAdmin(args []string, deps adminDeps) error {
	def := defaultAdminDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.now == nil {
		deps.now = def.now
	}
	if deps.out == nil {
		deps.out = def.out
	}

	if len(args) == 0 {
		_, _ = fmt.Fprint(deps.out, usage)
		return errUsage
	}
	command := args[0]

	fs := flag.NewFlagSet("admin-apikey "+command, flag.ContinueOnError)
	fs.SetOutput(deps.out)
	userIDFlag := fs.String("user-id", "", "target user UUID")
	keyFlag := fs.String("key", "", "api key id or secret")
	nameFlag := fs.String("name", "", "display name")
	emailFlag := fs.String("email", "", "user email")
	limitFlag := fs.Int64("limit", -1, "monthly request limit")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	// Validate flags before touching the database
	var (
		userID uuid.UUID
		err    error
	)
	switch command {
	case "create-key", "list-keys", "reset-usage", "set-limit":
		if userID, err = parseUserID(*userIDFlag); err != nil {
			return err
		}
		if command == "set-limit" && *limitFlag < 0 {
			return fmt.Errorf("-limit must be zero or positive: %w", errUsage)
		}
	case "activate", "deactivate", "delete-key":
		if strings.TrimSpace(*keyFlag) == "" {
			return fmt.Errorf("-key is required: %w", errUsage)
		}
	case "create-user":
		if *emailFlag == "" || *nameFlag == "" {
			return fmt.Errorf("-email and -name are required: %w", errUsage)
		}
	default:
		_, _ = fmt.Fprint(deps.out, usage)
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	runtime, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	ctx := context.Background()
	out := deps.out

	switch command {
	case "create-user":
		input := &entities.CreateUserInput{Email: *emailFlag, Name: *nameFlag}
		if *limitFlag >= 0 {
			input.MonthlyLimit = limitFlag
		}
		res, err := runtime.CreateUser(ctx, input)
		if err != nil {
			return fmt.Errorf("failed creating user: %w", err)
		}
		_, _ = fmt.Fprintln(out, "Created user with default API key")
		_, _ = fmt.Fprintf(out, "user_id=%s\n", res.User.ID)
		_, _ = fmt.Fprintf(out, "email=%s\n", res.User.Email)
		_, _ = fmt.Fprintf(out, "monthly_limit=%d\n", res.User.MonthlyLimit)
		_, _ = fmt.Fprintf(out, "api_key_id=%s\n", res.ApiKey.ID)
		_, _ = fmt.Fprintf(out, "API_KEY=%s\n", res.ApiKey.Key)

	case "create-key":
		key, err := runtime.CreateKey(ctx, userID, resolveKeyName(*nameFlag, deps.now()))
		if err != nil {
			return fmt.Errorf("failed creating api key: %w", err)
		}
		_, _ = fmt.Fprintln(out, "Created API key and stored in DB")
		_, _ = fmt.Fprintf(out, "user_id=%s\n", userID)
		_, _ = fmt.Fprintf(out, "api_key_id=%s\n", key.ID)
		_, _ = fmt.Fprintf(out, "name=%s\n", key.Name)
		_, _ = fmt.Fprintf(out, "API_KEY=%s\n", key.Key)

	case "list-keys":
		keys, err := runtime.ListKeys(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed listing keys: %w", err)
		}
		summary, err := runtime.GetUserUsage(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed loading usage: %w", err)
		}
		used := make(map[uuid.UUID]int64, len(summary.Keys))
		for _, k := range summary.Keys {
			used[k.ApiKeyID] = k.Total
		}
		_, _ = fmt.Fprintf(out, "period=%02d/%d used=%d limit=%d remaining=%d\n",
			summary.Period.Month, summary.Period.Year, summary.Used, summary.Limit, summary.Remaining)
		for _, k := range keys {
			_, _ = fmt.Fprintf(out, "%s\t%s\t%s\tactive=%t\tused=%d\n", k.ID, k.Masked(), k.Name, k.IsActive, used[k.ID])
		}

	case "activate", "deactivate", "delete-key":
		key, err := runtime.ResolveKey(ctx, strings.TrimSpace(*keyFlag))
		if err != nil {
			return fmt.Errorf("failed to find api key: %w", err)
		}
		switch command {
		case "activate":
			if _, err := runtime.ActivateKey(ctx, key.ID); err != nil {
				return fmt.Errorf("failed activating api key: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Activated api_key_id=%s\n", key.ID)
		case "deactivate":
			if _, err := runtime.DeactivateKey(ctx, key.ID); err != nil {
				return fmt.Errorf("failed deactivating api key: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Deactivated api_key_id=%s\n", key.ID)
		default:
			if err := runtime.DeleteKey(ctx, key.ID); err != nil {
				return fmt.Errorf("failed deleting api key: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Deleted api_key_id=%s\n", key.ID)
		}

	case "reset-usage":
		if err := runtime.ResetUsage(ctx, userID); err != nil {
			return fmt.Errorf("failed resetting usage: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Usage reset for user_id=%s\n", userID)

	case "set-limit":
		user, err := runtime.SetMonthlyLimit(ctx, userID, *limitFlag)
		if err != nil {
			return fmt.Errorf("failed setting limit: %w", err)
		}
		_, _ = fmt.Fprintf(out, "user_id=%s monthly_limit=%d\n", user.ID, user.MonthlyLimit)
	}
	return nil
}

func main() {
	if err := runAdmin(os.Args[1:], defaultAdminDeps()); err != nil {
		log.Fatal(err)
	}
}
