package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

// VerificationRepository implements the VerificationRepository interface for
// SQLite. Timestamps are stored as Unix nanoseconds.
type VerificationRepository struct {
	baseRepository
}

// NewVerificationRepository creates a new SQLite verification code repository
func NewVerificationRepository(db *sql.DB, logger *logrus.Logger) repositories.VerificationRepository {
	return &VerificationRepository{
		baseRepository: newBaseRepository(db, "email_verifications", "email_verification", logger),
	}
}

const verificationColumns = `id, user_id, code_hash, attempts, expires_at, consumed_at, created_at`

// Create stores a new code
func (r *VerificationRepository) Create(ctx context.Context, v *models.EmailVerification) error {
	if err := v.Validate(); err != nil {
		return repositories.ValidationError("email_verification", v.ID, err)
	}

	query := `INSERT INTO email_verifications (` + verificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.executeExec(ctx, "create", query,
		v.ID,
		v.UserID,
		v.CodeHash,
		v.Attempts,
		v.ExpiresAt.UnixNano(),
		nullableNanos(v.ConsumedAt),
		v.CreatedAt.UnixNano(),
	)
	if err != nil {
		switch {
		case repositories.IsUniqueViolation(err):
			return repositories.DuplicateError("email_verification", "id", v.ID)
		case repositories.IsForeignKeyViolation(err):
			return repositories.ConstraintError("email_verification", "user_id", err)
		}
		return err
	}
	return nil
}

// GetLatestOpen returns the newest unconsumed code of a user
func (r *VerificationRepository) GetLatestOpen(ctx context.Context, userID string) (*models.EmailVerification, error) {
	if err := r.validateID(userID); err != nil {
		return nil, err
	}

	query := `SELECT ` + verificationColumns + ` FROM email_verifications
		WHERE user_id = ? AND consumed_at IS NULL
		ORDER BY created_at DESC LIMIT 1`

	var (
		v                    models.EmailVerification
		expiresAt, createdAt int64
		consumedAt           sql.NullInt64
	)
	err := r.executeQueryRow(ctx, "get_latest_open", query, userID).Scan(
		&v.ID, &v.UserID, &v.CodeHash, &v.Attempts, &expiresAt, &consumedAt, &createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("email_verification", userID)
		}
		return nil, repositories.NewRepositoryError("get_latest_open", "email_verification", userID, err)
	}

	v.ExpiresAt = time.Unix(0, expiresAt).UTC()
	v.CreatedAt = time.Unix(0, createdAt).UTC()
	if consumedAt.Valid {
		t := time.Unix(0, consumedAt.Int64).UTC()
		v.ConsumedAt = &t
	}
	return &v, nil
}

// IncrementAttempts bumps the failed attempt counter of a code
func (r *VerificationRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	if err := r.validateID(id); err != nil {
		return 0, err
	}

	query := `UPDATE email_verifications SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`

	var attempts int
	if err := r.executeQueryRow(ctx, "increment_attempts", query, id).Scan(&attempts); err != nil {
		if err == sql.ErrNoRows {
			return 0, repositories.NotFoundError("email_verification", id)
		}
		return 0, repositories.NewRepositoryError("increment_attempts", "email_verification", id, err)
	}
	return attempts, nil
}

// Consume marks an open code as redeemed
func (r *VerificationRepository) Consume(ctx context.Context, id string, at time.Time) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE email_verifications SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL`
	result, err := r.executeExec(ctx, "consume", query, at.UnixNano(), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("consume", "email_verification", id, err)
	}
	if affected == 0 {
		return repositories.NotFoundError("email_verification", id)
	}
	return nil
}

// ConsumeAllForUser retires every open code of a user
func (r *VerificationRepository) ConsumeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	if err := r.validateID(userID); err != nil {
		return 0, err
	}

	query := `UPDATE email_verifications SET consumed_at = ? WHERE user_id = ? AND consumed_at IS NULL`
	result, err := r.executeExec(ctx, "consume_all_for_user", query, at.UnixNano(), userID)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, repositories.NewRepositoryError("consume_all_for_user", "email_verification", userID, err)
	}
	return affected, nil
}

func nullableNanos(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
