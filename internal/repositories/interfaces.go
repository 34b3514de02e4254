package repositories

import (
	"context"
	"time"

	"taxlator-api/internal/models"
)

// UserRepository defines operations on accounts
type UserRepository interface {
	// Create stores a new user. A taken email fails with ErrDuplicateEntry.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email, case-insensitively
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Exists checks if a user with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)

	// MarkEmailVerified flags the user's address as confirmed at the given time
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
}

// HistoryRepository defines operations on persisted calculations
type HistoryRepository interface {
	// Create stores one record
	Create(ctx context.Context, record *models.CalculationRecord) error

	// CreateBatch stores records in one transaction and returns how many were written
	CreateBatch(ctx context.Context, records []*models.CalculationRecord) (int, error)

	// List returns up to limit records of a user, newest first, strictly
	// after the cursor when one is given
	List(ctx context.Context, userID string, limit int, cursor *models.HistoryCursor) ([]*models.CalculationRecord, error)

	// ListAll returns every record of a user, newest first
	ListAll(ctx context.Context, userID string) ([]*models.CalculationRecord, error)

	// DeleteByUser removes all records of a user and returns the count
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// CountByUser returns the number of records of a user
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// VerificationRepository defines operations on email verification codes
type VerificationRepository interface {
	Create(ctx context.Context, verification *models.EmailVerification) error

	// GetLatestOpen returns the newest unconsumed code of a user, expired or not
	GetLatestOpen(ctx context.Context, userID string) (*models.EmailVerification, error)

	// IncrementAttempts records one failed redemption and returns the new count
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// Consume marks a code as redeemed. A code can be consumed once.
	Consume(ctx context.Context, id string, at time.Time) error

	// ConsumeAllForUser retires every open code of a user and returns the count
	ConsumeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// EmailAuditRepository defines operations on the outgoing email log
type EmailAuditRepository interface {
	Create(ctx context.Context, audit *models.EmailAudit) error

	// UpdateStatus records the delivery outcome of an entry
	UpdateStatus(ctx context.Context, id string, status models.EmailStatus, errorMessage *string) error

	// CountSince counts the emails of a purpose sent to recipient at or after since
	CountSince(ctx context.Context, recipient string, purpose models.EmailPurpose, since time.Time) (int64, error)

	// ListByRecipient returns the newest entries for an address
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*models.EmailAudit, error)
}

// RepositoryManager gives access to every repository over one connection
type RepositoryManager interface {
	Users() UserRepository
	History() HistoryRepository
	Verifications() VerificationRepository
	EmailAudit() EmailAuditRepository
	Health(ctx context.Context) error
}
