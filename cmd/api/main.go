package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/access-token-service/internal/api/http"
	"github.com/spec-kit/access-token-service/internal/api/http/handlers"
	"github.com/spec-kit/access-token-service/internal/auth"
	"github.com/spec-kit/access-token-service/internal/auth/token"
	"github.com/spec-kit/access-token-service/internal/config"
	"github.com/spec-kit/access-token-service/internal/events"
	"github.com/spec-kit/access-token-service/internal/observability"
	"github.com/spec-kit/access-token-service/internal/persistence"
	"github.com/spec-kit/access-token-service/internal/ratelimit"
	"github.com/spec-kit/access-token-service/internal/repository"
	"github.com/spec-kit/access-token-service/internal/service"
	"github.com/spec-kit/access-token-service/internal/worker"
	"github.com/spec-kit/access-token-service/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokenOpts, err := cfg.TokenOptions()
	if err != nil {
		logger.Fatal("invalid token options", zap.Error(err))
	}
	tokens, err := token.NewProvider(tokenOpts, token.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to init token provider", zap.Error(err))
	}
	logger.Info("token provider ready", zap.Object("options", tokenOpts))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var userRepo repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
	} else {
		logger.Warn("using in-memory user store; users are lost on restart")
		userRepo = repository.NewMemoryUserRepository()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	limiter := ratelimit.NewLoginLimiter(redis.ClientHandle(), cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow, logger)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Limiter:    limiter,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(tokens, func(c *fiber.Ctx) {
		authService.TokenRejected(c.UserContext(), c.Method(), c.Path(), c.IP())
	})

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
