package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/repositories"
)

// RepositoryManager bundles the SQLite repositories sharing one connection
type RepositoryManager struct {
	db      *sql.DB
	logger  *logrus.Logger
	users         repositories.UserRepository
	history       repositories.HistoryRepository
	verifications repositories.VerificationRepository
	emailAudit    repositories.EmailAuditRepository
}

// NewRepositoryManager creates repositories over an open, migrated database
func NewRepositoryManager(db *sql.DB, logger *logrus.Logger) (*RepositoryManager, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &RepositoryManager{
		db:            db,
		logger:        logger,
		users:         NewUserRepository(db, logger),
		history:       NewHistoryRepository(db, logger),
		verifications: NewVerificationRepository(db, logger),
		emailAudit:    NewEmailAuditRepository(db, logger),
	}, nil
}

// Users returns the user repository
func (m *RepositoryManager) Users() repositories.UserRepository {
	return m.users
}

// History returns the calculation history repository
func (m *RepositoryManager) History() repositories.HistoryRepository {
	return m.history
}

// Verifications returns the email verification code repository
func (m *RepositoryManager) Verifications() repositories.VerificationRepository {
	return m.verifications
}

// EmailAudit returns the outgoing email log repository
func (m *RepositoryManager) EmailAudit() repositories.EmailAuditRepository {
	return m.emailAudit
}

// Health checks that the database answers
func (m *RepositoryManager) Health(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
