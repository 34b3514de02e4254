package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlator-api/internal/database"
	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories/sqlite"
	"taxlator-api/internal/services"
)

const legacyHistory = `[
  {"id":"a1","type":"PAYE/PIT","input":{"grossIncome":3000000},"result":{"totalTax":174000},"createdAt":"2025-03-01T10:00:00Z"},
  {"id":"a2","type":"VAT","input":{"transactionAmount":1075},"result":{"vatAmount":75},"createdAt":"2025-03-02T10:00:00Z"}
]`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func setupImporter(t *testing.T) (*HistoryImporter, *sqlite.RepositoryManager, *models.User) {
	t.Helper()

	cm := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:    filepath.Join(t.TempDir(), "import.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		Logger:          quietLogger(),
	})
	require.NoError(t, cm.Connect(context.Background()))
	t.Cleanup(func() { cm.Close() })

	repos, err := sqlite.NewRepositoryManager(cm.GetDB(), quietLogger())
	require.NoError(t, err)

	user := models.NewUser("Ada", "Obi", "ada@example.com")
	user.PasswordHash = "hash"
	require.NoError(t, repos.Users().Create(context.Background(), user))

	history := services.NewHistoryService(repos.History(), nil, quietLogger())
	return NewHistoryImporter(repos.Users(), history, quietLogger()), repos, user
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseHistory(t *testing.T) {
	items, err := ParseHistory([]byte(legacyHistory))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.TaxTypePAYE, items[0].Type)
	assert.Equal(t, 2025, items[0].CreatedAt.Year())

	items, err = ParseHistory([]byte(`{"items":` + legacyHistory + `,"nextCursor":"abc"}`))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = ParseHistory([]byte("  "))
	assert.Error(t, err)
	_, err = ParseHistory([]byte(`[{"type":`))
	assert.Error(t, err)
}

func TestHistoryImporter_Import(t *testing.T) {
	ctx := context.Background()
	importer, repos, user := setupImporter(t)
	path := writeFile(t, legacyHistory)

	result, err := importer.Import(ctx, "ADA@example.com", path, false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.UserID)
	assert.Equal(t, 2, result.Read)
	assert.Equal(t, 2, result.Imported)
	assert.FileExists(t, result.BackupPath)

	count, err := repos.History().CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	records, err := repos.History().ListAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaxTypeVAT, records[0].Type, "newest first")
}

func TestHistoryImporter_DryRun(t *testing.T) {
	ctx := context.Background()
	importer, repos, user := setupImporter(t)
	path := writeFile(t, legacyHistory)

	result, err := importer.Import(ctx, user.ID, path, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Read)
	assert.Zero(t, result.Imported)
	assert.Empty(t, result.BackupPath)

	count, _ := repos.History().CountByUser(ctx, user.ID)
	assert.Zero(t, count)
}

func TestHistoryImporter_Errors(t *testing.T) {
	ctx := context.Background()
	importer, repos, user := setupImporter(t)

	_, err := importer.Import(ctx, "nobody@example.com", writeFile(t, legacyHistory), false)
	assert.Error(t, err)

	_, err = importer.Import(ctx, user.ID, filepath.Join(t.TempDir(), "missing.json"), false)
	assert.Error(t, err)

	// one bad item rejects the whole file
	bad := `[{"type":"PAYE/PIT","input":{},"result":{}},{"type":"WHT","input":{},"result":{}}]`
	_, err = importer.Import(ctx, user.ID, writeFile(t, bad), false)
	assert.True(t, models.IsInvalidInput(err), "got %v", err)

	count, _ := repos.History().CountByUser(ctx, user.ID)
	assert.Zero(t, count)
}
