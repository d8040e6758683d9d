package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/api"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/database"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/logging"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/middleware"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/observability"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run orchestrates startup: configuration, observability, stores, services,
// background tasks, the HTTP server, and graceful shutdown.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := observability.InitSentry(cfg.Sentry, serviceVersion, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Sentry: %v\n", err)
	}
	defer observability.Flush(context.Background())

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Bootstrap(ctx, db); err != nil {
		return err
	}

	// Redis is optional: without it rate limiting falls back to in-process
	// state and verified events are dropped (the durable record stays in
	// Postgres either way).
	var redisHandle *redis.Client
	var notifier services.Notifier = services.NopNotifier{}
	redisClient, err := database.NewRedisConnection(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis - continuing with local limiter and no event publishing", zap.Error(err))
	} else {
		defer redisClient.Close()
		redisHandle = redisClient.Client
		notifier = services.NewRedisNotifier(redisHandle, logger)
	}

	tokenStore := database.NewTokenStore(db)
	users := database.NewUserRepository(db)

	secret := []byte(cfg.Auth.JWTSecret)
	issuer := services.NewTokenIssuer(tokenStore, secret, cfg.Verification.BaseURL, cfg.Verification.TokenTTL)
	verification := services.NewVerificationService(tokenStore, users, notifier, secret, logger)

	cleanup := services.NewCleanupScheduler(tokenStore, cfg.Cleanup, logger)
	cleanup.Start(ctx)
	defer cleanup.Stop()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, redisHandle, logger)
	rateLimiter.StartSweeper(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	if cfg.Sentry.Enabled && cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{
			Repanic:         true,
			WaitForDelivery: false,
			Timeout:         2 * time.Second,
		}))
	}
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.Deps{
		Config:       cfg,
		Health:       db,
		Users:        users,
		Tokens:       tokenStore,
		Issuer:       issuer,
		Verification: verification,
		RateLimiter:  rateLimiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		logger.Info("Starting verification API",
			zap.Int("port", cfg.Server.Port),
			zap.String("version", serviceVersion),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}
