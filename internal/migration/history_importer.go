package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
	"taxlator-api/internal/services"
)

// HistoryImporter loads calculation history exported by older clients into
// a user's server side history
type HistoryImporter struct {
	users   repositories.UserRepository
	history services.HistoryService
	logger  *logrus.Logger
}

// ImportResult summarizes one import run
type ImportResult struct {
	UserID     string        `json:"userId"`
	Read       int           `json:"read"`
	Imported   int           `json:"imported"`
	DryRun     bool          `json:"dryRun"`
	BackupPath string        `json:"backupPath,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// NewHistoryImporter creates a new history importer
func NewHistoryImporter(users repositories.UserRepository, history services.HistoryService, logger *logrus.Logger) *HistoryImporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &HistoryImporter{
		users:   users,
		history: history,
		logger:  logger,
	}
}

// ReadHistoryFile reads a history export. Both a bare JSON array of items
// and a history page object ({"items": [...]}) are accepted.
func ReadHistoryFile(path string) ([]services.ImportItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseHistory(data)
}

// ParseHistory decodes the contents of a history export
func ParseHistory(data []byte) ([]services.ImportItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("history file is empty")
	}

	var items []services.ImportItem
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse history array: %w", err)
		}
		return items, nil
	}

	var page struct {
		Items []services.ImportItem `json:"items"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse history page: %w", err)
	}
	return page.Items, nil
}

// ResolveUser accepts either a user id or an email address
func (h *HistoryImporter) ResolveUser(ctx context.Context, ref string) (*models.User, error) {
	if strings.Contains(ref, "@") {
		return h.users.GetByEmail(ctx, ref)
	}
	return h.users.GetByID(ctx, ref)
}

// Import reads the file and stores its items for the referenced user. With
// dryRun the items are only parsed and counted. After a real import the
// source file is copied to a backup directory next to it.
func (h *HistoryImporter) Import(ctx context.Context, userRef, path string, dryRun bool) (*ImportResult, error) {
	start := time.Now()

	user, err := h.ResolveUser(ctx, userRef)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", userRef, err)
	}

	items, err := ReadHistoryFile(path)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		UserID: user.ID,
		Read:   len(items),
		DryRun: dryRun,
	}

	logger := h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"file":    path,
		"items":   len(items),
	})

	if dryRun {
		logger.Info("Dry run, nothing imported")
		result.Duration = time.Since(start)
		return result, nil
	}

	imported, err := h.history.Import(ctx, user.ID, items)
	if err != nil {
		return nil, err
	}
	result.Imported = imported

	backupPath, err := backupFile(path)
	if err != nil {
		// the history is already stored
		logger.WithError(err).Warn("Failed to back up history file")
	}
	result.BackupPath = backupPath
	result.Duration = time.Since(start)

	logger.WithFields(logrus.Fields{
		"imported": imported,
		"duration": result.Duration,
	}).Info("History import completed")

	return result, nil
}

// backupFile copies path into a "backup" directory beside it with a
// timestamp suffix
func backupFile(path string) (string, error) {
	dir := filepath.Join(filepath.Dir(path), "backup")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), time.Now().Format("20060102_150405"), ext)
	dst := filepath.Join(dir, name)

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return dst, nil
}
