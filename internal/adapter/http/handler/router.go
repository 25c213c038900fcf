package handler

import (
	"cashback-platform/internal/adapter/http/middleware"
	redisStore "cashback-platform/internal/adapter/storage/redis"
	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TokenSvc       ports.TokenService
	SettlementSvc  ports.SettlementService
	ReferralSvc    ports.ReferralService
	ReportingSvc   ports.ReportingService
	SessionSvc     ports.SessionVerifier
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// All API routes require a session minted by the identity provider.
	sessionAuth := middleware.SessionAuth(deps.SessionSvc, deps.Logger)
	v1 := r.Group("/api/v1", sessionAuth)

	tokenHandler := NewTokenHandler(deps.TokenSvc)
	tokens := v1.Group("/tokens")
	{
		tokens.POST("", rl("tokens_issue"), middleware.RequireRole(domain.RoleMerchant), tokenHandler.Issue)
		tokens.GET("/:code", rl("dashboard"), tokenHandler.Validate)
		tokens.DELETE("/:code", rl("tokens_issue"), middleware.RequireRole(domain.RoleMerchant), tokenHandler.Cancel)
	}

	paymentHandler := NewPaymentHandler(deps.SettlementSvc)
	payments := v1.Group("/payments")
	{
		payments.POST("", rl("payments"), paymentHandler.SettlePayment)
	}

	referralHandler := NewReferralHandler(deps.ReferralSvc)
	referrals := v1.Group("/referrals")
	{
		referrals.POST("", rl("referrals"), referralHandler.LinkReferral)
	}

	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)
	dashboard := v1.Group("/dashboard")
	{
		dashboard.GET("/stats", rl("dashboard"), dashboardHandler.GetStats)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", rl("dashboard"), dashboardHandler.ListTransactions)
		transactions.GET("/:id", rl("dashboard"), dashboardHandler.GetTransaction)
	}

	accounts := v1.Group("/accounts")
	{
		accounts.GET("/balance", rl("dashboard"), dashboardHandler.GetBalance)
	}

	return r
}
