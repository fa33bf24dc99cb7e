package handler

import (
	"casino-ledger/internal/adapter/http/middleware"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	BaccaratSvc    ports.BaccaratService
	GameLogSvc     ports.GameLogService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer // nil = no /metrics route
	APISpec        []byte              // OpenAPI YAML served under /swagger
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode == "" {
		deps.Mode = gin.ReleaseMode
	}
	gin.SetMode(deps.Mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger documentation
	docs := NewDocsHandler(deps.APISpec, "/swagger/spec")
	swagger := r.Group("/swagger")
	{
		swagger.GET("", docs.UI)
		swagger.GET("/spec", docs.Spec)
	}

	limiter := middleware.NewLimiter(deps.RateLimitStore, middleware.DefaultRateLimitRules(), deps.Metrics, deps.Logger)
	rl := limiter.For

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl(middleware.GroupRegister), authHandler.Register)
		auth.POST("/login", rl(middleware.GroupLogin), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.ReportingSvc)
	ledgerHandler := NewLedgerHandler(deps.ReportingSvc, deps.GameLogSvc)
	baccaratHandler := NewBaccaratHandler(deps.BaccaratSvc)

	v1.GET("/account", jwtAuth, rl(middleware.GroupReporting), ledgerHandler.GetAccount)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl(middleware.GroupReporting), walletHandler.GetBalance)
		wallet.POST("/deposit", rl(middleware.GroupWallet), walletHandler.Deposit)
		wallet.POST("/withdraw", rl(middleware.GroupWallet), walletHandler.Withdraw)
	}

	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.GET("/entries", rl(middleware.GroupReporting), ledgerHandler.ListEntries)
		ledger.GET("/verify", rl(middleware.GroupReporting), ledgerHandler.VerifyChain)
	}

	games := v1.Group("/games", jwtAuth)
	{
		games.GET("/logs", rl(middleware.GroupReporting), ledgerHandler.ListGameLogs)
	}

	bac := v1.Group("/baccarat", jwtAuth)
	{
		bac.POST("/rounds", rl(middleware.GroupBaccarat), baccaratHandler.Play)
		bac.GET("/active", rl(middleware.GroupReporting), baccaratHandler.ActiveGame)
	}

	return r
}
