package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestConfig(t *testing.T) *ConnectionConfig {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return &ConnectionConfig{
		DatabasePath:    filepath.Join(t.TempDir(), "nested", "taxlator.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		Logger:          logger,
	}
}

func TestConnectionManager_ConnectAndMigrate(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager(newTestConfig(t))

	if manager.GetDB() != nil {
		t.Error("GetDB() should return nil when not connected")
	}

	if err := manager.Connect(ctx); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer manager.Close()

	if err := manager.Connect(ctx); err == nil {
		t.Error("Connect() should fail when already connected")
	}

	if err := manager.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() failed: %v", err)
	}

	status := manager.GetHealthStatus(ctx)
	if !status.Healthy {
		t.Errorf("Expected healthy status, got %+v", status)
	}

	migrations := manager.GetMigrationManager()
	if err := migrations.ValidateSchema(); err != nil {
		t.Errorf("ValidateSchema() failed: %v", err)
	}

	info, err := migrations.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus() failed: %v", err)
	}
	if info.Version != 3 || info.Dirty || !info.Applied {
		t.Errorf("Unexpected migration status: %+v", info)
	}

	// Running again is a no-op
	if err := migrations.RunMigrations(); err != nil {
		t.Errorf("Second RunMigrations() failed: %v", err)
	}
}

func TestMigrationManager_Rollback(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager(newTestConfig(t))
	if err := manager.Connect(ctx); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer manager.Close()

	migrations := manager.GetMigrationManager()
	if err := migrations.RollbackMigration(); err != nil {
		t.Fatalf("RollbackMigration() failed: %v", err)
	}

	info, err := migrations.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus() failed: %v", err)
	}
	if info.Version != 2 {
		t.Errorf("Expected version 2 after rollback, got %d", info.Version)
	}

	if err := migrations.ValidateSchema(); err == nil {
		t.Error("Expected schema validation to fail without email_verifications")
	}
}

func TestConnectionManager_WithTransaction(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager(newTestConfig(t))
	if err := manager.Connect(ctx); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer manager.Close()

	insert := func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, first_name, last_name, email, password_hash) VALUES ('u1', 'A', 'B', 'a@b.co', 'x')`)
		return err
	}

	wantErr := errors.New("abort")
	err := manager.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insert(tx); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected abort error, got %v", err)
	}

	var count int
	if err := manager.GetDB().QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected rollback to leave 0 users, got %d", count)
	}

	if err := manager.WithTransaction(ctx, insert); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := manager.GetDB().QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after commit, got %d", count)
	}
}

func TestConnectionManager_NotConnected(t *testing.T) {
	manager := NewConnectionManager(newTestConfig(t))

	if err := manager.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail when not connected")
	}
	if manager.GetMigrationManager() != nil {
		t.Error("GetMigrationManager() should return nil when not connected")
	}
	if err := manager.Close(); err != nil {
		t.Errorf("Close() on an unconnected manager should succeed: %v", err)
	}
}

func TestBuildDSN(t *testing.T) {
	if got := buildDSN(":memory:"); got != ":memory:?_foreign_keys=on&_busy_timeout=5000" {
		t.Errorf("Unexpected memory DSN: %s", got)
	}
	if got := buildDSN("/tmp/x.db"); got != "/tmp/x.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL" {
		t.Errorf("Unexpected file DSN: %s", got)
	}
}

func TestConnectionManager_CreateBackup(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager(newTestConfig(t))
	if err := manager.Connect(ctx); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer manager.Close()

	_, err := manager.GetDB().ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, email, password_hash, role, created_at, updated_at)
		 VALUES ('u1', 'Ada', 'Obi', 'ada@example.com', 'hash', 'user', 1, 1)`)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	backupPath := filepath.Join(t.TempDir(), "backup.db")
	if err := manager.CreateBackup(ctx, backupPath); err != nil {
		t.Fatalf("CreateBackup() failed: %v", err)
	}

	backup, err := Open(backupPath)
	if err != nil {
		t.Fatalf("Failed to open backup: %v", err)
	}
	defer backup.Close()

	var count int
	if err := backup.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil || count != 1 {
		t.Errorf("Expected 1 user in backup, got %d (%v)", count, err)
	}

	if err := manager.CreateBackup(ctx, backupPath); err == nil {
		t.Error("CreateBackup() should refuse to overwrite an existing file")
	}
}

func TestConnectionManager_StartMonitor(t *testing.T) {
	manager := NewConnectionManager(newTestConfig(t))
	if err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	defer manager.Close()

	ctx, cancel := context.WithCancel(context.Background())
	manager.StartMonitor(ctx, 5*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	cancel()

	if err := manager.Ping(context.Background()); err != nil {
		t.Errorf("Connection should stay usable while monitored: %v", err)
	}
}
