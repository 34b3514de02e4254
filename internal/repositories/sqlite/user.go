package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

// UserRepository implements the UserRepository interface for SQLite
type UserRepository struct {
	baseRepository
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(db *sql.DB, logger *logrus.Logger) repositories.UserRepository {
	return &UserRepository{
		baseRepository: newBaseRepository(db, "users", "user", logger),
	}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, email_verified, email_verified_at, created_at, updated_at`

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return repositories.ValidationError("user", user.ID, err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.EmailVerified,
		user.EmailVerifiedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if repositories.IsUniqueViolation(err) {
			return repositories.DuplicateError("user", "email", user.Email)
		}
		return err
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.executeQueryRow(ctx, "get_by_id", query, id), "get_by_id", id)
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, repositories.NewRepositoryError("get_by_email", "user", "", repositories.ErrInvalidID)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? COLLATE NOCASE`
	return r.scanUser(r.executeQueryRow(ctx, "get_by_email", query, email), "get_by_email", email)
}

// MarkEmailVerified sets email_verified and records when it happened
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE users SET email_verified = 1, email_verified_at = ?, updated_at = ? WHERE id = ?`
	result, err := r.executeExec(ctx, "mark_email_verified", query, at.UTC(), at.UTC(), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("mark_email_verified", "user", id, err)
	}
	if affected == 0 {
		return repositories.NotFoundError("user", id)
	}
	return nil
}

func (r *UserRepository) scanUser(row *sql.Row, op, key string) (*models.User, error) {
	user := &models.User{}
	var verifiedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.EmailVerified,
		&verifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("user", key)
		}
		return nil, repositories.NewRepositoryError(op, "user", key, err)
	}

	if verifiedAt.Valid {
		t := verifiedAt.Time
		user.EmailVerifiedAt = &t
	}
	return user, nil
}
