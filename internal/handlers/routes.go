package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"taxlator-api/internal/middleware"
	"taxlator-api/internal/models"
	"taxlator-api/internal/services"
)

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	TaxService          services.TaxCalculationService
	HistoryService      services.HistoryService
	AccountService      services.AccountService
	VerificationService services.EmailVerificationService
	AuthService         *middleware.AuthService

	// HealthCheck reports storage health, nil means always healthy
	HealthCheck  func(ctx context.Context) error
	SecureCookie bool
	Version      string
}

// MiddlewareConfig holds the tunables of the global middleware chain
type MiddlewareConfig struct {
	CORSOrigins       []string
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
	SlowThreshold     time.Duration
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	taxHandler := NewTaxHandler(config.TaxService, config.AuthService)
	historyHandler := NewHistoryHandler(config.HistoryService)
	authHandler := NewAuthHandler(config.AccountService, config.AuthService, config.SecureCookie)
	verificationHandler := NewVerificationHandler(config.VerificationService)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", healthHandler(config))

	api := router.Group("/api")
	{
		// Calculations work for guests; signed in users get history
		calc := api.Group("")
		calc.Use(middleware.OptionalAuthentication(config.AuthService))
		{
			calc.POST("/tax/calculate", taxHandler.Calculate)
			calc.POST("/vat/calculate", taxHandler.CalculateVAT)
		}
		api.GET("/tax/rates", taxHandler.GetRates)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/validate", authHandler.ValidateToken)
			auth.POST("/sendVerificationCode", verificationHandler.SendVerificationCode)
			auth.POST("/verifyEmail", verificationHandler.VerifyEmail)

			authProtected := auth.Group("")
			authProtected.Use(middleware.Authentication(config.AuthService))
			{
				authProtected.POST("/signout", authHandler.SignOut)
				authProtected.GET("/me", authHandler.Me)
			}
		}

		history := api.Group("/history")
		history.Use(middleware.Authentication(config.AuthService))
		history.Use(middleware.RequestValidation(models.MaxHistoryLimit))
		{
			history.GET("", historyHandler.List)
			history.DELETE("", historyHandler.Clear)
			history.GET("/export/csv", historyHandler.ExportCSV)
			history.GET("/export/pdf", historyHandler.ExportPDF)
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, config *MiddlewareConfig) {
	if config == nil {
		config = &MiddlewareConfig{}
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 100
	}
	if config.Burst <= 0 {
		config.Burst = 200
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	router.Use(middleware.Recovery())

	// Request ID and correlation ID
	router.Use(middleware.RequestID())
	router.Use(middleware.CorrelationID())

	router.Use(middleware.CORS(config.CORSOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(config.MaxBodyBytes))
	router.Use(middleware.ContentTypeValidation("application/json"))
	router.Use(middleware.RateLimiter(config.RequestsPerSecond, config.Burst))

	router.Use(middleware.StructuredLogger())
	router.Use(middleware.PerformanceMonitor(config.SlowThreshold))
	router.Use(middleware.AuditLogger())
	router.Use(middleware.ErrorTracker())
	router.Use(middleware.EnhancedErrorHandler())
}

func healthHandler(config *RouterConfig) gin.HandlerFunc {
	version := config.Version
	if version == "" {
		version = "1.0.0"
	}

	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":  "healthy",
			"service": "taxlator-api",
			"version": version,
		}

		if config.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := config.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["error"] = err.Error()
			}
		}

		c.JSON(status, body)
	}
}
