package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/ratelimit"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, cfg.RateLimit.Backend == config.RateLimitBackendRedis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	limiter, err := newLoginLimiter(ctx, cfg.RateLimit, redis, logger)
	if err != nil {
		logger.Fatal("failed to build login rate limiter", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	refreshRepo := repository.NewRefreshTokenRepository(pool)

	authService, err := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		RoleRepo:         roleRepo,
		RefreshTokenRepo: refreshRepo,
		Limiter:          limiter,
		Logger:           logger,
		Metrics:          metrics,
		Events:           dispatcher,
	})
	if err != nil {
		logger.Fatal("failed to build auth service", zap.Error(err))
	}
	userService := service.NewUserService(userRepo, roleRepo, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), cfg.Auth.PublicPaths, metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:          cfg.App.RequestTimeout(),
		CORSAllowOrigins: cfg.App.CORSAllowOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Admin:          handlers.NewAdminHandler(userService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

// newLoginLimiter picks the limiter backend. The in-memory limiter gets a
// background loop that drops idle keys.
func newLoginLimiter(ctx context.Context, cfg config.RateLimitConfig, redis *persistence.Redis, logger *zap.Logger) (ratelimit.Limiter, error) {
	rlCfg := ratelimit.Config{Window: cfg.Window(), MaxAttempts: cfg.MaxAttempts}

	if cfg.Backend == config.RateLimitBackendRedis {
		logger.Info("using redis login rate limiter")
		return ratelimit.NewRedisLimiter(redis.Client, rlCfg)
	}

	limiter := ratelimit.NewMemoryLimiter(rlCfg)
	go limiter.RunEviction(ctx, cfg.EvictInterval(), func(removed int) {
		logger.Debug("evicted idle rate limit keys", zap.Int("count", removed))
	})
	logger.Info("using in-memory login rate limiter")
	return limiter, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
