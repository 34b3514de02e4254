package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StartMonitor runs a health check and logs pool statistics every interval
// until ctx is cancelled
func (cm *ConnectionManager) StartMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger := cm.config.Logger

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("Database monitor stopped")
				return
			case <-ticker.C:
				status := cm.GetHealthStatus(ctx)
				stats := cm.GetStats()
				entry := logger.WithFields(logrus.Fields{
					"response_time":    status.ResponseTime,
					"open_connections": stats.OpenConnections,
					"in_use":           stats.InUse,
					"wait_count":       stats.WaitCount,
				})
				if !status.Healthy {
					entry.WithField("message", status.Message).Warn("Database health check failed")
				} else {
					entry.Debug("Database health check passed")
				}
			}
		}
	}()

	logger.WithField("interval", interval).Info("Database monitor started")
}

// CreateBackup writes a consistent copy of the open database to path with
// VACUUM INTO. path must not exist yet.
func (cm *ConnectionManager) CreateBackup(ctx context.Context, path string) error {
	db := cm.GetDB()
	if db == nil {
		return fmt.Errorf("database connection not established")
	}
	if cm.config.DatabasePath == memoryPath {
		return fmt.Errorf("in-memory databases cannot be backed up")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backup target %s already exists", path)
	}

	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(path, "'", "''"))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	cm.config.Logger.WithField("backup_path", path).Info("Database backup created")
	return nil
}
