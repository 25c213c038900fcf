package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashback-platform/config"
	httpHandler "cashback-platform/internal/adapter/http/handler"
	pgStorage "cashback-platform/internal/adapter/storage/postgres"
	redisStorage "cashback-platform/internal/adapter/storage/redis"
	"cashback-platform/internal/core/ports"
	"cashback-platform/internal/service"
	"cashback-platform/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Cashback Settlement Platform")

	platformAccount, err := uuid.Parse(cfg.Settlement.PlatformAccountID)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid settlement.platform_account_id")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	tokenRepo := pgStorage.NewTokenRepo(pool)
	accountRepo := pgStorage.NewAccountRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	referralRepo := pgStorage.NewReferralRepo(pool)
	rateRepo := pgStorage.NewRateRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	notifier := redisStorage.NewEventPublisher(rdb, cfg.Settlement.EventChannel)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize business services
	sessionSvc := service.NewJWTSessionService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	tokenSvc := service.NewTokenService(tokenRepo, cfg.Settlement.TokenTTL, cfg.Settlement.MinTokenAmount, log)
	settlementSvc := service.NewSettlementService(
		tokenRepo,
		accountRepo,
		txRepo,
		referralRepo,
		rateRepo,
		transactor,
		notifier,
		platformAccount,
		log,
	)
	referralSvc := service.NewReferralService(referralRepo, accountRepo, transactor, cfg.Settlement.ActivationBonus, log)
	reportingSvc := service.NewReportingService(txRepo, accountRepo)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TokenSvc:       tokenSvc,
		SettlementSvc:  settlementSvc,
		ReferralSvc:    referralSvc,
		ReportingSvc:   reportingSvc,
		SessionSvc:     sessionSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
