package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/database"
)

type action func(m *database.MigrationManager) error

var actions = map[string]action{
	"up":       (*database.MigrationManager).RunMigrations,
	"down":     (*database.MigrationManager).RollbackMigration,
	"status":   printStatus,
	"validate": validateSchema,
}

func main() {
	var (
		dbPath  = flag.String("db", "./data/taxlator.db", "Database file path")
		name    = flag.String("action", "up", "Migration action: up, down, status, validate, backup")
		backup  = flag.Bool("backup", false, "Copy the database file before changing the schema")
		out     = flag.String("out", "", "Target file of the backup action")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	run, ok := actions[*name]
	if !ok && *name != "backup" {
		logger.WithField("action", *name).Fatal("Unknown action. Use: up, down, status, validate, backup")
	}
	if *name == "backup" && *out == "" {
		logger.Fatal("The backup action needs -out")
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}
	if err := os.MkdirAll(filepath.Dir(absDBPath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}

	logger.WithFields(logrus.Fields{
		"db_path": absDBPath,
		"action":  *name,
	}).Info("Starting migration tool")

	// AutoMigrate stays off so "down" and "status" see the schema as it is
	cm := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:    absDBPath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		BackupEnabled:   *backup,
		Logger:          logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := cm.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer cm.Close()

	if *name == "backup" {
		if err := cm.CreateBackup(ctx, *out); err != nil {
			logger.WithError(err).Fatal("Backup failed")
		}
		logger.Info("Migration tool completed successfully")
		return
	}

	if err := run(cm.GetMigrationManager()); err != nil {
		logger.WithError(err).Fatalf("Migration %s failed", *name)
	}

	logger.Info("Migration tool completed successfully")
}

func printStatus(m *database.MigrationManager) error {
	status, err := m.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("Migration Status:\n")
	fmt.Printf("  Version: %d\n", status.Version)
	fmt.Printf("  Applied: %t\n", status.Applied)
	fmt.Printf("  Dirty: %t\n", status.Dirty)
	return nil
}

func validateSchema(m *database.MigrationManager) error {
	if err := m.ValidateSchema(); err != nil {
		return err
	}
	fmt.Println("Schema validation passed successfully")
	return nil
}
