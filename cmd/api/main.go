package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casino-ledger/config"
	httpHandler "casino-ledger/internal/adapter/http/handler"
	"casino-ledger/internal/adapter/storage/nocache"
	pgStorage "casino-ledger/internal/adapter/storage/postgres"
	redisStorage "casino-ledger/internal/adapter/storage/redis"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"
	"casino-ledger/internal/service"
	"casino-ledger/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CLG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("cache", cfg.Redis.Enabled).
		Msg("Starting Casino Ledger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL is the durable tier; nothing runs without it.
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	// Fast tier: Redis when enabled and reachable, otherwise durable-only.
	var (
		cacheStore     ports.CacheStore     = nocache.New()
		rateLimitStore ports.RateLimitStore = nocache.RateLimitStore{}
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without the fast tier")
		} else {
			defer rdb.Close()
			cacheStore = redisStorage.NewCacheStore(rdb, "clg")
			rateLimitStore = redisStorage.NewRateLimitStore(rdb)
			healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
			log.Info().Msg("Redis connected")
		}
	}

	aesKey := ephemeralIfEmpty(cfg.AES.Key, "aes.key", log)
	jwtSecret := ephemeralIfEmpty(cfg.JWT.Secret, "jwt.secret", log)

	// Repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	gameLogRepo := pgStorage.NewGameLogRepo(pool)
	lockRepo := pgStorage.NewLockRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Core services
	encSvc, err := service.NewAESEncryptionService(aesKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(jwtSecret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	cache := service.NewTieredCache(cacheStore, accountRepo, cfg.Ledger.BalanceTTL, cfg.Ledger.GameStateTTL, metrics, logger.Component(log, "cache"))
	locks := service.NewLockManager(lockRepo, cfg.Ledger.LockTTL, cfg.Ledger.ReleaseTimeout, metrics, logger.Component(log, "lock_manager"))
	ledgerSvc := service.NewLedgerService(accountRepo, ledgerRepo, transactor, cache, metrics, logger.Component(log, "ledger"))
	gameState := service.NewGameStateManager(cache, accountRepo, metrics, logger.Component(log, "game_state"))
	riskSvc := service.NewRiskService(metrics, cfg.Risk.MetricsEnabled, logger.Component(log, "risk"))
	gameLogSvc := service.NewGameLogService(gameLogRepo, logger.Component(log, "game_log"))
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	// Business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(locks, ledgerSvc, logger.Component(log, "wallet"))
	reportingSvc := service.NewReportingService(accountRepo, ledgerRepo, cache)
	baccaratSvc := service.NewBaccaratService(
		locks,
		accountRepo,
		ledgerSvc,
		gameState,
		riskSvc,
		gameLogSvc,
		encSvc,
		cfg.Ledger.MaxBet,
		metrics,
		logger.Component(log, "baccarat"),
	)

	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		locks.RunJanitor(ctx, cfg.Ledger.LockSweepInterval)
	}()

	apiSpec, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("OpenAPI spec not found, /swagger/spec will return 404")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		ReportingSvc:   reportingSvc,
		BaccaratSvc:    baccaratSvc,
		GameLogSvc:     gameLogSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Metrics:        metrics,
		Gatherer:       registry,
		APISpec:        apiSpec,
		Mode:           cfg.Server.Mode,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// In-flight requests are done; drain the background writers before the pool closes.
	<-janitorDone
	gameState.Wait()
	gameLogSvc.Wait()
	auditSvc.Wait()

	log.Info().Msg("Server exited")
}

// ephemeralIfEmpty returns value, or a random 32-byte hex key when it is unset.
// Validate already rejects empty keys in release mode.
func ephemeralIfEmpty(value, name string, log zerolog.Logger) string {
	if value != "" {
		return value
	}
	key, err := service.GenerateKeyHex()
	if err != nil {
		log.Fatal().Err(err).Str("key", name).Msg("Failed to generate ephemeral key")
	}
	log.Warn().Str("key", name).Msg("No key configured, using an ephemeral one; data sealed with it is lost on restart")
	return key
}
