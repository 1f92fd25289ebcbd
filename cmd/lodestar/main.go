package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lodestar-app/lodestar/internal/app"
	"github.com/lodestar-app/lodestar/internal/billing"
	"github.com/lodestar-app/lodestar/internal/flags"
	"github.com/lodestar-app/lodestar/internal/guard"
	"github.com/lodestar-app/lodestar/internal/identity"
	"github.com/lodestar-app/lodestar/internal/impersonation"
	"github.com/lodestar-app/lodestar/internal/observability"
	"github.com/lodestar-app/lodestar/internal/platform/cache"
	"github.com/lodestar-app/lodestar/internal/platform/db"
	"github.com/lodestar-app/lodestar/internal/shared"
	"github.com/lodestar-app/lodestar/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()

	identityRepo := identity.NewRepository(dbpool)
	provider := identity.NewSessionProvider(identityRepo, logger, cfg.IdentityCacheTTL)

	flagSource := flags.NewSource(redisClient, logger, cfg.FlagPollInterval)
	go flagSource.Run(ctx)

	overlayStore := impersonation.NewStore()
	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	impersonationService := impersonation.NewService(overlayStore, queue, metrics, logger)
	impersonationHandler := impersonation.NewHandler(logger, impersonationService, provider)

	planSource := billing.NewPlanSource(dbpool)
	engine := guard.NewEngine(guard.EngineConfig{
		Provider:        provider,
		Overlays:        overlayStore,
		Flags:           flagSource,
		Plans:           planSource,
		Logger:          logger,
		Metrics:         metrics,
		OnboardingGrace: cfg.OnboardingGraceWindow,
	})
	guardMiddleware := guard.Middleware{Engine: engine, Logger: logger}
	guardHandler := guard.NewHandler(logger, engine)

	identityHandler := identity.NewHandler(logger, provider, sessionManager, impersonationService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		IdentityHandler:      identityHandler,
		ImpersonationHandler: impersonationHandler,
		GuardHandler:         guardHandler,
		Guard:                guardMiddleware,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
