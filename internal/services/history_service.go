package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taxlator-api/internal/adapters/storage"
	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
)

const (
	contentTypeCSV = "text/csv"
	contentTypePDF = "application/pdf"
)

// historyService implements HistoryService
type historyService struct {
	repo    repositories.HistoryRepository
	archive storage.FileStorage
	logger  *logrus.Logger
	now     func() time.Time
}

// NewHistoryService creates a history service. archive may be nil, in which
// case exports are rendered but not archived.
func NewHistoryService(repo repositories.HistoryRepository, archive storage.FileStorage, logger *logrus.Logger) HistoryService {
	if logger == nil {
		logger = logrus.New()
	}
	return &historyService{
		repo:    repo,
		archive: archive,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record persists one calculation
func (s *historyService) Record(ctx context.Context, userID string, input models.CalculationInput, result models.CalculationResult) (*models.CalculationRecord, error) {
	record, err := models.NewCalculationRecord(userID, input, result)
	if err != nil {
		return nil, fmt.Errorf("failed to build history record: %w", err)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save history record: %w", err)
	}

	return record, nil
}

// List returns one page of history. One extra row is fetched to decide
// whether a next page exists.
func (s *historyService) List(ctx context.Context, query *models.HistoryQuery) (*models.HistoryPage, error) {
	if query == nil || query.UserID == "" {
		return nil, models.NewInvalidInputError("userId", nil, "is required")
	}

	limit := models.NormalizeHistoryLimit(query.Limit)
	records, err := s.repo.List(ctx, query.UserID, limit+1, query.Cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	page := &models.HistoryPage{Items: records}
	if len(records) > limit {
		page.Items = records[:limit]
		last := page.Items[limit-1]
		page.NextCursor = models.HistoryCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}

	return page, nil
}

// Clear deletes every record of the user
func (s *historyService) Clear(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, models.NewInvalidInputError("userId", nil, "is required")
	}

	deleted, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"deleted": deleted,
	}).Info("History cleared")

	s.purgeExports(ctx, userID)

	return deleted, nil
}

// purgeExports removes the archived exports of a user. Failures are logged
// only, the history itself is already gone.
func (s *historyService) purgeExports(ctx context.Context, userID string) {
	if s.archive == nil {
		return
	}

	files, err := s.archive.List(ctx, exportPrefix(userID))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to list archived exports")
		return
	}

	for _, file := range files {
		if err := s.archive.Delete(ctx, file.Key); err != nil && !storage.IsNotFound(err) {
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"key":     file.Key,
				"error":   err.Error(),
			}).Warn("Failed to delete archived export")
		}
	}
}

func exportPrefix(userID string) string {
	return "exports/" + userID + "/"
}

// ExportCSV renders the user's history as CSV
func (s *historyService) ExportCSV(ctx context.Context, userID string) (*Export, error) {
	records, err := s.exportRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := renderHistoryCSV(records)
	if err != nil {
		return nil, fmt.Errorf("failed to render CSV export: %w", err)
	}

	return s.finishExport(ctx, userID, "csv", contentTypeCSV, data, len(records)), nil
}

// ExportPDF renders the user's history as a PDF table, one row per record
func (s *historyService) ExportPDF(ctx context.Context, userID string) (*Export, error) {
	records, err := s.exportRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := renderHistoryPDF(records, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF export: %w", err)
	}

	return s.finishExport(ctx, userID, "pdf", contentTypePDF, data, len(records)), nil
}

// Import stores legacy history items for a user in one transaction
func (s *historyService) Import(ctx context.Context, userID string, items []ImportItem) (int, error) {
	if userID == "" {
		return 0, models.NewInvalidInputError("userId", nil, "is required")
	}
	if len(items) == 0 {
		return 0, nil
	}

	records := make([]*models.CalculationRecord, 0, len(items))
	for i, item := range items {
		createdAt := item.CreatedAt
		if createdAt.IsZero() {
			createdAt = s.now()
		}

		record := &models.CalculationRecord{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      item.Type,
			Input:     item.Input,
			Result:    item.Result,
			CreatedAt: createdAt.UTC(),
		}
		if err := record.Validate(); err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, record)
	}

	written, err := s.repo.CreateBatch(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to import history: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"imported": written,
	}).Info("History imported")

	return written, nil
}

func (s *historyService) exportRecords(ctx context.Context, userID string) ([]*models.CalculationRecord, error) {
	if userID == "" {
		return nil, models.NewInvalidInputError("userId", nil, "is required")
	}

	records, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

// finishExport names the export and archives it. Archive failures are logged
// and the rendered export is still returned.
func (s *historyService) finishExport(ctx context.Context, userID, ext, contentType string, data []byte, count int) *Export {
	now := s.now()
	export := &Export{
		Filename:    fmt.Sprintf("taxlator-history-%s.%s", now.Format("20060102-150405"), ext),
		ContentType: contentType,
		Records:     count,
		Data:        data,
	}

	if s.archive == nil {
		return export
	}

	key := exportPrefix(userID) + export.Filename
	err := s.archive.Store(ctx, key, data, &storage.StoreOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"user_id": userID,
			"records": fmt.Sprintf("%d", count),
		},
		Overwrite: true,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"key":     key,
			"error":   err.Error(),
		}).Warn("Failed to archive history export")
		return export
	}

	export.StorageKey = key
	return export
}
