package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"agency-proxy.backend/internal/config"
	"agency-proxy.backend/internal/infrastructure/dataset"
	"agency-proxy.backend/internal/infrastructure/datasources"
	"agency-proxy.backend/internal/infrastructure/jobs"
	"agency-proxy.backend/internal/infrastructure/repositories"
	"agency-proxy.backend/internal/infrastructure/seed"
	"agency-proxy.backend/internal/interfaces/http/handlers"
	"agency-proxy.backend/internal/interfaces/http/middleware"
	"agency-proxy.backend/internal/usecases"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/ratelimit"
	"agency-proxy.backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = datasources.Open
	runServer  = func(ctx context.Context, handler http.Handler, port string) error {
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
	getStdDB = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if cfg.Redis.Enabled() {
		if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
			logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redis.Close()
		logger.Info(context.Background(), "Redis initialized")
	} else {
		logger.Warn(context.Background(), "REDIS_URL not set, idempotency and decision stats disabled")
	}

	if cfg.Auth.MasterKey == "" {
		logger.Warn(context.Background(), "API_KEY not set, master credential disabled")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	logger.Info(context.Background(), "Database connected", zap.String("driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewApiKeyRepository(db)
	usageRepo := repositories.NewUsageRepository(db, repositories.WithLocation(cfg.Quota.Location()))
	requestLogRepo := repositories.NewRequestLogRepository(db)
	uow := repositories.NewUnitOfWork(db)

	if cfg.Seed.Path != "" {
		loader := seed.NewLoader(userRepo, apiKeyRepo, uow, cfg.Quota.DefaultMonthlyLimit)
		if _, err := loader.LoadFile(ctx, cfg.Seed.Path); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
	}

	// Dataset
	store := dataset.NewSnapshotStore(cfg.Dataset.SnapshotPath)
	fetcher := dataset.NewHTTPFetcher(cfg.Dataset.SourceURL, cfg.Dataset.FetchTimeout)
	refreshJob, err := jobs.NewDatasetRefreshJob(fetcher, store, cfg.Dataset.Schedule, cfg.Dataset.FetchTimeout)
	if err != nil {
		return fmt.Errorf("failed to create dataset refresh job: %w", err)
	}
	go refreshJob.Start(ctx)
	defer refreshJob.Stop()

	if cfg.Dataset.Watch {
		watcher, err := dataset.NewWatcher(cfg.Dataset.SnapshotPath, 0)
		if err != nil {
			logger.Warn(ctx, "Dataset watcher unavailable", zap.Error(err))
		} else {
			go func() {
				if err := watcher.Watch(ctx, store.Invalidate); err != nil {
					logger.Warn(ctx, "Dataset watcher exited", zap.Error(err))
				}
			}()
			defer watcher.Stop()
		}
	}

	// Usage log writer; stopped before the database closes
	recorder := usecases.NewUsageRecorder(requestLogRepo, cfg.Recorder.BufferSize)
	go recorder.Start(ctx)
	defer recorder.Stop()

	publicLimiter := ratelimit.NewStore(cfg.PublicRateLimit.RPS, cfg.PublicRateLimit.Burst)
	go publicLimiter.StartJanitor(ctx)

	// Usecases
	apiKeyUsecase := usecases.NewApiKeyUsecase(apiKeyRepo, userRepo, cfg.Auth.MasterKey, cfg.Quota.StorageTimeout)
	quotaUsecase := usecases.NewQuotaUsecase(usageRepo, cfg.Quota.Mode, cfg.Quota.StorageTimeout, redis.NewDecisionStats(redis.GetClient()))
	adminUsecase := usecases.NewAdminUsecase(userRepo, apiKeyRepo, usageRepo, requestLogRepo, uow, cfg.Quota.DefaultMonthlyLimit)
	agencyUsecase := usecases.NewAgencyUsecase(store, refreshJob)
	trackUsecase := usecases.NewTrackUsecase(cfg.Track.UpstreamURL, cfg.Track.Timeout)

	r := newRouter(cfg, routeDeps{
		healthHandler: handlers.NewHealthHandler(time.Now()),
		agencyHandler: handlers.NewAgencyHandler(agencyUsecase),
		trackHandler:  handlers.NewTrackHandler(trackUsecase),
		syncHandler:   handlers.NewSyncHandler(agencyUsecase),
		adminHandler:  handlers.NewAdminHandler(adminUsecase),
		quotaAuth:     middleware.QuotaAuthMiddleware(apiKeyUsecase, quotaUsecase, recorder),
		masterOnly:    middleware.MasterOnly(apiKeyUsecase),
		publicLimit:   middleware.IPRateLimitMiddleware(publicLimiter),
		frontGuard:    middleware.FrontGuard(cfg.Server.PublicHost),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	logger.Info(ctx, "Agency proxy starting",
		zap.String("port", cfg.Server.Port),
		zap.String("quota_mode", string(quotaUsecase.Mode())),
	)
	if err := runServer(ctx, r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info(context.Background(), "Server stopped")
	return nil
}
