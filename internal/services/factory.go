package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/adapters/storage"
	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	TaxService          TaxCalculationService
	HistoryService      HistoryService
	AuthService         AccountService
	VerificationService EmailVerificationService
}

// ServiceConfig holds configuration for services
type ServiceConfig struct {
	RateTables   *models.RateTables
	Tokens       TokenIssuer
	Archive      storage.FileStorage
	Mailer       Mailer
	Verification VerificationConfig
	BcryptCost   int
	Logger       *logrus.Logger
}

// NewServiceContainer creates a new service container with all services
func NewServiceContainer(repos repositories.RepositoryManager, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository manager cannot be nil")
	}
	if config == nil {
		config = &ServiceConfig{}
	}

	tables := config.RateTables
	if tables == nil {
		tables = models.DefaultRateTables()
	}

	historyService := NewHistoryService(repos.History(), config.Archive, config.Logger)

	taxService, err := NewTaxServiceForTables(tables, historyService, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tax service: %w", err)
	}

	authService, err := NewAuthService(repos.Users(), config.Tokens, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}
	mailer := config.Mailer
	if mailer == nil {
		mailer = NewLogMailer(config.Logger)
	}
	verificationService, err := NewVerificationService(repos.Users(), repos.Verifications(), repos.EmailAudit(), mailer, config.Verification, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification service: %w", err)
	}

	if config.BcryptCost > 0 {
		authService.SetHashCost(config.BcryptCost)
		verificationService.SetHashCost(config.BcryptCost)
	}

	return &ServiceContainer{
		TaxService:          taxService,
		HistoryService:      historyService,
		AuthService:         authService,
		VerificationService: verificationService,
	}, nil
}

// Validate validates that all services are properly initialized
func (sc *ServiceContainer) Validate() error {
	if sc.TaxService == nil {
		return fmt.Errorf("tax service is nil")
	}
	if sc.HistoryService == nil {
		return fmt.Errorf("history service is nil")
	}
	if sc.AuthService == nil {
		return fmt.Errorf("auth service is nil")
	}
	if sc.VerificationService == nil {
		return fmt.Errorf("verification service is nil")
	}
	return nil
}
