package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlator-api/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment: "test",
		Port:        "0",
		LogLevel:    "error",
		Database: config.DatabaseConfig{
			Path:            filepath.Join(dir, "db", "taxlator.db"),
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Storage: config.StorageConfig{
			Type:      "local",
			LocalPath: filepath.Join(dir, "files"),
		},
		JWT: config.JWTConfig{
			Issuer:      "taxlator-test",
			ExpiryHours: 1,
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             100,
		},
		CORSOrigins: []string{"*"},
	}
}

func TestNewContainer(t *testing.T) {
	container, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.TaxService)
	assert.NotNil(t, container.HistoryService)
	assert.NotNil(t, container.AccountService)
	assert.NotNil(t, container.VerificationService)
	assert.NotNil(t, container.Auth)
	assert.NotNil(t, container.TaxHandler())
	assert.NoError(t, container.Health(t.Context()))
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Storage.Type = "ftp"
	_, err = NewContainer(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.RateTables.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewContainer(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Email.Provider = "smtp"
	_, err = NewContainer(cfg)
	assert.Error(t, err, "smtp without a host must fail")
}

func TestContainerRouter(t *testing.T) {
	container, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer container.Close()

	router := container.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)

	req := httptest.NewRequest(http.MethodPost, "/api/tax/calculate",
		strings.NewReader(`{"taxType":"PAYE/PIT","grossIncome":3000000}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalTax":174000`)

	// history is private
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContainerClose(t *testing.T) {
	container, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, container.Close())

	assert.Error(t, container.Health(t.Context()))
}
