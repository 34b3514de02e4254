package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taxlator-api/internal/adapters/storage"
	"taxlator-api/internal/config"
	"taxlator-api/internal/database"
	"taxlator-api/internal/handlers"
	"taxlator-api/internal/middleware"
	"taxlator-api/internal/repositories/sqlite"
	"taxlator-api/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// devJWTSecret signs tokens outside production when JWT_SECRET is unset
const devJWTSecret = "taxlator-dev-secret-change-me"

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Auth   *middleware.AuthService

	TaxService          services.TaxCalculationService
	HistoryService      services.HistoryService
	AccountService      services.AccountService
	VerificationService services.EmailVerificationService

	// Internal dependencies
	db      *database.ConnectionManager
	repos   *sqlite.RepositoryManager
	archive storage.FileStorage
}

// NewContainer connects the database, loads the rate tables and wires the
// services. The caller owns the container and must Close it.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	logger := cfg.NewLogger()

	if err := cfg.Database.EnsureDirectories(); err != nil {
		return nil, err
	}

	connConfig := cfg.Database.ToConnectionConfig(logger)
	connConfig.AutoMigrate = cfg.Database.AutoMigrate
	db := database.NewConnectionManager(connConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	container := &Container{
		Config: cfg,
		Logger: logger,
		db:     db,
	}

	if err := container.wire(); err != nil {
		container.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"database":    cfg.Database.Path,
		"storage":     cfg.Storage.Type,
		"mode":        config.GetDeploymentMode(),
	}).Info("Container initialized")

	return container, nil
}

func (c *Container) wire() error {
	cfg := c.Config

	repos, err := sqlite.NewRepositoryManager(c.db.GetDB(), c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	c.repos = repos

	tables, err := config.LoadRateTables(cfg.RateTables)
	if err != nil {
		return err
	}

	archive, err := storage.New(&storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.LocalPath,
		MaxRetries: cfg.Storage.MaxRetries,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create export storage: %w", err)
	}
	c.archive = archive

	secret := cfg.JWT.Secret
	if secret == "" {
		c.Logger.Warn("JWT_SECRET is not set, using the development secret")
		secret = devJWTSecret
	}
	c.Auth = middleware.NewAuthService(&middleware.AuthConfig{
		JWTSecret:     secret,
		TokenDuration: cfg.JWTExpiry(),
		Issuer:        cfg.JWT.Issuer,
	})

	mailer, err := services.NewMailer(&services.MailerConfig{
		Provider:     cfg.Email.Provider,
		FromEmail:    cfg.Email.FromEmail,
		FromName:     cfg.Email.FromName,
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		ResendAPIKey: cfg.Email.ResendAPIKey,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}
	if mailer.Provider() == services.MailProviderLog && cfg.IsProduction() {
		c.Logger.Warn("EMAIL_PROVIDER is log, verification codes will only be logged")
	}

	svc, err := services.NewServiceContainer(repos, &services.ServiceConfig{
		RateTables: tables,
		Tokens:     c.Auth,
		Archive:    archive,
		Mailer:     mailer,
		Verification: services.VerificationConfig{
			CodeTTL:         cfg.Email.CodeTTL,
			MaxAttempts:     cfg.Email.MaxAttempts,
			MaxSendsPerHour: cfg.Email.MaxSendsPerHour,
		},
		Logger: c.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create service container: %w", err)
	}

	c.TaxService = svc.TaxService
	c.HistoryService = svc.HistoryService
	c.AccountService = svc.AuthService
	c.VerificationService = svc.VerificationService
	return nil
}

// Router builds the gin engine with the full middleware chain and routes
func (c *Container) Router() *gin.Engine {
	if c.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, &handlers.MiddlewareConfig{
		CORSOrigins:       c.Config.CORSOrigins,
		RequestsPerSecond: float64(c.Config.RateLimit.RequestsPerSecond),
		Burst:             c.Config.RateLimit.Burst,
	})
	handlers.SetupRoutes(router, &handlers.RouterConfig{
		TaxService:     c.TaxService,
		HistoryService: c.HistoryService,
		AccountService:      c.AccountService,
		VerificationService: c.VerificationService,
		AuthService:         c.Auth,
		HealthCheck:    c.Health,
		SecureCookie:   c.Config.IsProduction(),
		Version:        Version,
	})

	return router
}

// TaxHandler returns the calculation handler used by the Lambda entry point
func (c *Container) TaxHandler() *handlers.TaxHandler {
	return handlers.NewTaxHandler(c.TaxService, c.Auth)
}

// Health checks the database and the repositories on top of it
func (c *Container) Health(ctx context.Context) error {
	if err := c.db.HealthCheck(ctx); err != nil {
		return err
	}
	if c.repos != nil {
		return c.repos.Health(ctx)
	}
	return nil
}

// StartMonitor checks the database in the background until ctx is done
func (c *Container) StartMonitor(ctx context.Context, interval time.Duration) {
	c.db.StartMonitor(ctx, interval)
}

// Close cleans up all resources
func (c *Container) Close() error {
	var firstErr error
	if c.archive != nil {
		if err := c.archive.Close(); err != nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
