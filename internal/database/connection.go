package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const memoryPath = ":memory:"

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	DatabasePath    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	BackupEnabled   bool
	Logger          *logrus.Logger
}

// DefaultConnectionConfig returns a default configuration
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		DatabasePath:    "./data/taxlator.db",
		MaxOpenConns:    1, // SQLite works best with single connection
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		Logger:          logrus.New(),
	}
}

// HealthStatus is the result of a database health check
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Message      string        `json:"message,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
	ResponseTime time.Duration `json:"response_time"`
}

// ConnectionManager manages the SQLite connection that stores users and
// calculation history
type ConnectionManager struct {
	config *ConnectionConfig
	db     *sql.DB
	mu     sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(config *ConnectionConfig) *ConnectionManager {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &ConnectionManager{
		config: config,
	}
}

// Connect opens the database and, when enabled, applies pending migrations
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.db != nil {
		return fmt.Errorf("database connection already established")
	}

	db, err := Open(cm.config.DatabasePath)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cm.config.MaxOpenConns)
	db.SetMaxIdleConns(cm.config.MaxIdleConns)
	if cm.config.DatabasePath == memoryPath {
		// An in-memory database lives only as long as its connection
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	}

	if cm.config.AutoMigrate {
		migrations := NewMigrationManager(db, cm.config.Logger)
		migrations.SetBackupEnabled(cm.config.BackupEnabled)
		if err := migrations.RunMigrations(); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cm.db = db
	cm.config.Logger.WithField("db_path", cm.config.DatabasePath).Info("Database connection established")
	return nil
}

// Open opens a SQLite database with foreign keys and WAL enabled, creating
// the parent directory when needed
func Open(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// buildDSN appends the connection options to a database path
func buildDSN(path string) string {
	options := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	if path != memoryPath {
		options = append(options, "_journal_mode=WAL")
	}
	return fmt.Sprintf("%s?%s", path, strings.Join(options, "&"))
}

// GetDB returns the database connection
func (cm *ConnectionManager) GetDB() *sql.DB {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.db
}

// Close closes the database connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.db == nil {
		return nil
	}

	err := cm.db.Close()
	cm.db = nil

	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	cm.config.Logger.Info("Database connection closed")
	return nil
}

// Ping tests the database connection
func (cm *ConnectionManager) Ping(ctx context.Context) error {
	db := cm.GetDB()
	if db == nil {
		return fmt.Errorf("database connection not established")
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// GetMigrationManager returns a migration manager for this connection
func (cm *ConnectionManager) GetMigrationManager() *MigrationManager {
	db := cm.GetDB()
	if db == nil {
		return nil
	}

	manager := NewMigrationManager(db, cm.config.Logger)
	manager.SetBackupEnabled(cm.config.BackupEnabled)
	return manager
}

// HealthCheck performs a comprehensive health check
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	db := cm.GetDB()

	// Test a simple query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("test query returned unexpected result: %d", result)
	}

	// Check foreign keys are enabled
	var fkEnabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to check foreign key status: %w", err)
	}

	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys are not enabled")
	}

	return nil
}

// GetHealthStatus runs a health check and reports it with its duration
func (cm *ConnectionManager) GetHealthStatus(ctx context.Context) *HealthStatus {
	start := time.Now()
	err := cm.HealthCheck(ctx)

	status := &HealthStatus{
		Healthy:      err == nil,
		CheckedAt:    time.Now(),
		ResponseTime: time.Since(start),
	}
	if err != nil {
		status.Message = err.Error()
	}
	return status
}

// GetStats returns connection pool statistics
func (cm *ConnectionManager) GetStats() sql.DBStats {
	db := cm.GetDB()
	if db == nil {
		return sql.DBStats{}
	}
	return db.Stats()
}

// WithTransaction executes a function within a database transaction
func (cm *ConnectionManager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db := cm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	return WithTransaction(ctx, db, cm.config.Logger, fn)
}

// WithTransaction executes fn inside a transaction on db, rolling back on
// error or panic
func WithTransaction(ctx context.Context, db *sql.DB, logger *logrus.Logger, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.WithError(rollbackErr).Error("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
