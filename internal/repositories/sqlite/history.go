package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/database"
	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

// HistoryRepository implements the HistoryRepository interface for SQLite.
// created_at is stored as Unix nanoseconds.
type HistoryRepository struct {
	baseRepository
}

// NewHistoryRepository creates a new SQLite history repository
func NewHistoryRepository(db *sql.DB, logger *logrus.Logger) repositories.HistoryRepository {
	return &HistoryRepository{
		baseRepository: newBaseRepository(db, "calculation_history", "calculation", logger),
	}
}

const (
	historyColumns = `id, user_id, type, input, result, created_at`
	insertHistory  = `INSERT INTO calculation_history (` + historyColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
)

// Create stores one calculation record
func (r *HistoryRepository) Create(ctx context.Context, record *models.CalculationRecord) error {
	if err := record.Validate(); err != nil {
		return repositories.ValidationError("calculation", record.ID, err)
	}

	_, err := r.executeExec(ctx, "create", insertHistory, historyArgs(record)...)
	if err != nil {
		return r.mapWriteError(err, record)
	}

	return nil
}

// CreateBatch stores records in a single transaction
func (r *HistoryRepository) CreateBatch(ctx context.Context, records []*models.CalculationRecord) (int, error) {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return 0, repositories.ValidationError("calculation", record.ID, err)
		}
	}

	written := 0
	err := database.WithTransaction(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertHistory)
		if err != nil {
			return repositories.TransactionError("prepare", err)
		}
		defer stmt.Close()

		for _, record := range records {
			if _, err := stmt.ExecContext(ctx, historyArgs(record)...); err != nil {
				return r.mapWriteError(repositories.NewRepositoryError("create_batch", "calculation", record.ID, err), record)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.WithFields(logrus.Fields{"table": r.table, "count": written}).Debug("Batch insert committed")
	return written, nil
}

// List returns one page of a user's records, newest first
func (r *HistoryRepository) List(ctx context.Context, userID string, limit int, cursor *models.HistoryCursor) ([]*models.CalculationRecord, error) {
	if err := r.validateID(userID); err != nil {
		return nil, err
	}

	query := `SELECT ` + historyColumns + ` FROM calculation_history WHERE user_id = ?`
	args := []interface{}{userID}

	if cursor != nil {
		ts := cursor.CreatedAt.UnixNano()
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, ts, ts, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	return r.queryRecords(ctx, "list", query, args...)
}

// ListAll returns every record of a user, newest first
func (r *HistoryRepository) ListAll(ctx context.Context, userID string) ([]*models.CalculationRecord, error) {
	if err := r.validateID(userID); err != nil {
		return nil, err
	}

	query := `SELECT ` + historyColumns + ` FROM calculation_history WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	return r.queryRecords(ctx, "list_all", query, userID)
}

// DeleteByUser removes every record of a user
func (r *HistoryRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if err := r.validateID(userID); err != nil {
		return 0, err
	}

	result, err := r.executeExec(ctx, "delete_by_user", `DELETE FROM calculation_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, repositories.NewRepositoryError("delete_by_user", "calculation", userID, err)
	}
	return deleted, nil
}

// CountByUser returns the number of records of a user
func (r *HistoryRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if err := r.validateID(userID); err != nil {
		return 0, err
	}

	var count int64
	err := r.executeQueryRow(ctx, "count_by_user", `SELECT COUNT(*) FROM calculation_history WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, repositories.NewRepositoryError("count_by_user", "calculation", userID, err)
	}
	return count, nil
}

func (r *HistoryRepository) queryRecords(ctx context.Context, op, query string, args ...interface{}) ([]*models.CalculationRecord, error) {
	rows, err := r.executeQuery(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.CalculationRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError(op, "calculation", "", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError(op, "calculation", "", err)
	}

	return records, nil
}

func (r *HistoryRepository) mapWriteError(err error, record *models.CalculationRecord) error {
	switch {
	case repositories.IsUniqueViolation(err):
		return repositories.DuplicateError("calculation", "id", record.ID)
	case repositories.IsForeignKeyViolation(err):
		return repositories.ConstraintError("calculation", "user_id", err)
	}
	return err
}

func historyArgs(record *models.CalculationRecord) []interface{} {
	return []interface{}{
		record.ID,
		record.UserID,
		string(record.Type),
		string(record.Input),
		string(record.Result),
		record.CreatedAt.UnixNano(),
	}
}

func scanRecord(rows *sql.Rows) (*models.CalculationRecord, error) {
	var (
		record        models.CalculationRecord
		recordType    string
		input, result string
		createdAt     int64
	)

	if err := rows.Scan(&record.ID, &record.UserID, &recordType, &input, &result, &createdAt); err != nil {
		return nil, err
	}

	record.Type = models.TaxType(recordType)
	record.Input = []byte(input)
	record.Result = []byte(result)
	record.CreatedAt = time.Unix(0, createdAt).UTC()
	return &record, nil
}
