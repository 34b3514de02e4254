package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"taxlator-api/internal/models"
)

// LoadRateTables returns the tables named by the configuration. An empty
// path selects the built-in tables. Loaded tables are validated and must
// not be modified afterwards.
func LoadRateTables(cfg RateTablesConfig) (*models.RateTables, error) {
	if cfg.Path == "" {
		tables := models.DefaultRateTables()
		if err := tables.Validate(); err != nil {
			return nil, fmt.Errorf("built-in rate tables are invalid: %w", err)
		}
		return tables, nil
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate tables %s: %w", cfg.Path, err)
	}

	tables, err := ParseRateTables(data)
	if err != nil {
		return nil, fmt.Errorf("rate tables %s: %w", cfg.Path, err)
	}
	return tables, nil
}

// ParseRateTables decodes and validates a YAML rate table document
func ParseRateTables(data []byte) (*models.RateTables, error) {
	var tables models.RateTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if tables.Jurisdiction == "" {
		tables.Jurisdiction = models.DefaultJurisdiction
	}
	if tables.Jurisdiction != models.DefaultJurisdiction {
		return nil, fmt.Errorf("unsupported jurisdiction: %s", tables.Jurisdiction)
	}

	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &tables, nil
}
