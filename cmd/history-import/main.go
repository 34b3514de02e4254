package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"taxlator-api/internal/database"
	"taxlator-api/internal/migration"
	"taxlator-api/internal/repositories/sqlite"
	"taxlator-api/internal/services"
)

func main() {
	var (
		dbPath   = flag.String("db", "./data/taxlator.db", "Database file path")
		jsonPath = flag.String("json", "", "History export to import (JSON array or history page)")
		userRef  = flag.String("user", "", "Target user id or email")
		dryRun   = flag.Bool("dry-run", false, "Parse and count items without importing")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *jsonPath == "" || *userRef == "" {
		flag.Usage()
		logger.Fatal("Both -json and -user are required")
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}
	absJSONPath, err := filepath.Abs(*jsonPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute JSON path")
	}

	logger.WithFields(logrus.Fields{
		"db_path":   absDBPath,
		"json_path": absJSONPath,
		"user":      *userRef,
		"dry_run":   *dryRun,
	}).Info("Starting history import")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cm := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:    absDBPath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		Logger:          logger,
	})
	if err := cm.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer cm.Close()

	repos, err := sqlite.NewRepositoryManager(cm.GetDB(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create repositories")
	}

	// exports are not produced here, so no archive
	history := services.NewHistoryService(repos.History(), nil, logger)
	importer := migration.NewHistoryImporter(repos.Users(), history, logger)

	result, err := importer.Import(ctx, *userRef, absJSONPath, *dryRun)
	if err != nil {
		logger.WithError(err).Fatal("History import failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
