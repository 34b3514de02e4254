package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

// EmailAuditRepository implements the EmailAuditRepository interface for SQLite
type EmailAuditRepository struct {
	baseRepository
}

// NewEmailAuditRepository creates a new SQLite email audit repository
func NewEmailAuditRepository(db *sql.DB, logger *logrus.Logger) repositories.EmailAuditRepository {
	return &EmailAuditRepository{
		baseRepository: newBaseRepository(db, "email_audit", "email_audit", logger),
	}
}

const emailAuditColumns = `id, user_id, recipient_email, purpose, provider, status, error_message, sent_at`

// Create stores a new audit entry
func (r *EmailAuditRepository) Create(ctx context.Context, audit *models.EmailAudit) error {
	if err := audit.Validate(); err != nil {
		return repositories.ValidationError("email_audit", audit.ID, err)
	}

	var userID interface{}
	if audit.UserID != "" {
		userID = audit.UserID
	}

	query := `INSERT INTO email_audit (` + emailAuditColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.executeExec(ctx, "create", query,
		audit.ID,
		userID,
		audit.RecipientEmail,
		string(audit.Purpose),
		audit.Provider,
		string(audit.Status),
		audit.ErrorMessage,
		audit.SentAt.UnixNano(),
	)
	if err != nil {
		switch {
		case repositories.IsUniqueViolation(err):
			return repositories.DuplicateError("email_audit", "id", audit.ID)
		case repositories.IsForeignKeyViolation(err):
			return repositories.ConstraintError("email_audit", "user_id", err)
		}
		return err
	}
	return nil
}

// UpdateStatus records the delivery outcome of an entry
func (r *EmailAuditRepository) UpdateStatus(ctx context.Context, id string, status models.EmailStatus, errorMessage *string) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE email_audit SET status = ?, error_message = ? WHERE id = ?`
	result, err := r.executeExec(ctx, "update_status", query, string(status), errorMessage, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("update_status", "email_audit", id, err)
	}
	if affected == 0 {
		return repositories.NotFoundError("email_audit", id)
	}
	return nil
}

// CountSince counts emails of one purpose sent to an address since a point in time.
// Failed deliveries count too.
func (r *EmailAuditRepository) CountSince(ctx context.Context, recipient string, purpose models.EmailPurpose, since time.Time) (int64, error) {
	recipient = models.NormalizeEmail(recipient)

	query := `SELECT COUNT(*) FROM email_audit WHERE recipient_email = ? AND purpose = ? AND sent_at >= ?`

	var count int64
	err := r.executeQueryRow(ctx, "count_since", query, recipient, string(purpose), since.UnixNano()).Scan(&count)
	if err != nil {
		return 0, repositories.NewRepositoryError("count_since", "email_audit", recipient, err)
	}
	return count, nil
}

// ListByRecipient returns the newest entries for an address
func (r *EmailAuditRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*models.EmailAudit, error) {
	recipient = models.NormalizeEmail(recipient)

	query := `SELECT ` + emailAuditColumns + ` FROM email_audit
		WHERE recipient_email = ? ORDER BY sent_at DESC, id DESC LIMIT ?`

	rows, err := r.executeQuery(ctx, "list_by_recipient", query, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.EmailAudit{}
	for rows.Next() {
		var (
			entry             models.EmailAudit
			userID, errorText sql.NullString
			purpose, status   string
			sentAt            int64
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.RecipientEmail, &purpose, &entry.Provider, &status, &errorText, &sentAt); err != nil {
			return nil, repositories.NewRepositoryError("list_by_recipient", "email_audit", recipient, err)
		}

		entry.UserID = userID.String
		entry.Purpose = models.EmailPurpose(purpose)
		entry.Status = models.EmailStatus(status)
		entry.SentAt = time.Unix(0, sentAt).UTC()
		if errorText.Valid {
			msg := errorText.String
			entry.ErrorMessage = &msg
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list_by_recipient", "email_audit", recipient, err)
	}
	return entries, nil
}
