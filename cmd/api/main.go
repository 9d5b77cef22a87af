package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fault-service/internal/api/http"
	"github.com/spec-kit/fault-service/internal/api/http/handlers"
	"github.com/spec-kit/fault-service/internal/auth"
	"github.com/spec-kit/fault-service/internal/classifier"
	"github.com/spec-kit/fault-service/internal/config"
	"github.com/spec-kit/fault-service/internal/events"
	"github.com/spec-kit/fault-service/internal/notifier"
	"github.com/spec-kit/fault-service/internal/observability"
	"github.com/spec-kit/fault-service/internal/persistence"
	"github.com/spec-kit/fault-service/internal/realtime"
	"github.com/spec-kit/fault-service/internal/repository"
	"github.com/spec-kit/fault-service/internal/service"
	"github.com/spec-kit/fault-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		logger.Fatal("failed to create uploads directory", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	faultRepo := repository.NewFaultRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	mailer := notifier.NewSMTPMailer(cfg.Mailer, logger)
	classifierClient := classifier.NewHTTPClient(cfg.Classifier)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	faultService := service.NewFaultService(service.FaultDependencies{
		FaultRepo:   faultRepo,
		CommentRepo: commentRepo,
		Classifier:  classifierClient,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		ResetRepo:  resetRepo,
		Tokens:     tokens,
		Google:     auth.NewGoogleVerifier(cfg.Google.ClientID),
		Notifier:   mailer,
		ResetTTL:   cfg.Auth.ResetTTL(),
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	userService := service.NewUserService(userRepo, logger)
	notificationService := service.NewNotificationService(userRepo, mailer, logger)

	hub := realtime.NewHub(logger, metrics)
	hub.Register(dispatcher)
	worker.StartNotificationWorker(dispatcher, notificationService)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Faults:         handlers.NewFaultsHandler(faultService, cfg.Uploads),
		Users:          handlers.NewUsersHandler(userService),
		Realtime:       handlers.NewRealtimeHandler(hub, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		Uploads:        cfg.Uploads,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
