package storage

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// StorageType represents the type of storage implementation
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMock  StorageType = "mock"
	StorageTypeNone  StorageType = "none"
)

// Config selects and configures the export archive
type Config struct {
	Type       string
	BasePath   string
	MaxRetries int
}

// New creates the archive described by config, wrapped with retries when
// MaxRetries is above one. Type "none" returns a nil storage, which disables
// archiving.
func New(config *Config, logger *logrus.Logger) (FileStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	var storage FileStorage
	switch StorageType(strings.ToLower(config.Type)) {
	case StorageTypeLocal, "":
		basePath := config.BasePath
		if basePath == "" {
			basePath = "./data/files"
		}
		local, err := NewLocalFileStorage(basePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		storage = local
	case StorageTypeMock:
		storage = NewMockFileStorage()
	case StorageTypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}

	if config.MaxRetries > 1 {
		retry := DefaultRetryConfig()
		retry.MaxAttempts = config.MaxRetries
		storage = NewRetryableFileStorage(storage, retry, logger)
	}

	return storage, nil
}
