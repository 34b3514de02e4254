package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"taxlator-api/internal/models"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			check: func(t *testing.T, config *Config) {
				if config.Port != "8080" {
					t.Errorf("Expected default port 8080, got %s", config.Port)
				}
				if config.Database.Path != "./data/taxlator.db" {
					t.Errorf("Expected default database path, got %s", config.Database.Path)
				}
				if config.RateTables.Path != "" {
					t.Errorf("Expected built-in rate tables, got path %s", config.RateTables.Path)
				}
				if config.RateLimit.RequestsPerSecond != 100 || config.RateLimit.Burst != 200 {
					t.Errorf("Unexpected rate limit defaults: %+v", config.RateLimit)
				}
				if config.Email.Provider != "log" || config.Email.CodeTTL != 15*time.Minute {
					t.Errorf("Unexpected email defaults: %+v", config.Email)
				}
				if config.Email.MaxAttempts != 5 || config.Email.MaxSendsPerHour != 5 {
					t.Errorf("Unexpected verification limits: %+v", config.Email)
				}
			},
		},
		{
			name: "resend email provider",
			envVars: map[string]string{
				"EMAIL_PROVIDER":        "Resend",
				"RESEND_API_KEY":        "re_test",
				"EMAIL_FROM":            "hello@taxlator.ng",
				"VERIFICATION_CODE_TTL": "10m",
			},
			check: func(t *testing.T, config *Config) {
				if config.Email.Provider != "resend" || config.Email.ResendAPIKey != "re_test" {
					t.Errorf("Unexpected email config: %+v", config.Email)
				}
				if config.Email.CodeTTL != 10*time.Minute {
					t.Errorf("Expected 10m code TTL, got %v", config.Email.CodeTTL)
				}
			},
		},
		{
			name:    "smtp provider requires a host",
			envVars: map[string]string{"EMAIL_PROVIDER": "smtp", "SMTP_HOST": ""},
			wantErr: true,
		},
		{
			name: "environment overrides",
			envVars: map[string]string{
				"PORT":             "9090",
				"LOG_LEVEL":        "debug",
				"RATE_TABLES_PATH": "/etc/taxlator/rates.yaml",
				"CORS_ORIGINS":     "https://a.example, https://b.example",
			},
			check: func(t *testing.T, config *Config) {
				if config.Port != "9090" {
					t.Errorf("Expected port 9090, got %s", config.Port)
				}
				if config.RateTables.Path != "/etc/taxlator/rates.yaml" {
					t.Errorf("Expected rate tables path override, got %s", config.RateTables.Path)
				}
				if len(config.CORSOrigins) != 2 || config.CORSOrigins[1] != "https://b.example" {
					t.Errorf("Unexpected CORS origins: %v", config.CORSOrigins)
				}
				if config.NewLogger().GetLevel().String() != "debug" {
					t.Errorf("Expected debug logger")
				}
			},
		},
		{
			name:    "production requires a JWT secret",
			envVars: map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": ""},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			envVars: map[string]string{"LOG_LEVEL": "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			config, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && config != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestEmailConfigValidate(t *testing.T) {
	valid := func() EmailConfig {
		return EmailConfig{
			Provider:        "smtp",
			FromEmail:       "no-reply@taxlator.ng",
			SMTPHost:        "smtp.example.com",
			SMTPPort:        587,
			CodeTTL:         15 * time.Minute,
			MaxAttempts:     5,
			MaxSendsPerHour: 5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*EmailConfig)
		wantErr string
	}{
		{name: "smtp", mutate: func(*EmailConfig) {}},
		{name: "log needs no sender", mutate: func(e *EmailConfig) { e.Provider = "log"; e.FromEmail = "" }},
		{name: "unknown provider", mutate: func(e *EmailConfig) { e.Provider = "pigeon" }, wantErr: "EMAIL_PROVIDER"},
		{name: "bad port", mutate: func(e *EmailConfig) { e.SMTPPort = 0 }, wantErr: "SMTP_PORT"},
		{name: "resend without key", mutate: func(e *EmailConfig) { e.Provider = "resend" }, wantErr: "RESEND_API_KEY"},
		{name: "missing sender", mutate: func(e *EmailConfig) { e.FromEmail = "" }, wantErr: "EMAIL_FROM"},
		{name: "short ttl", mutate: func(e *EmailConfig) { e.CodeTTL = time.Second }, wantErr: "VERIFICATION_CODE_TTL"},
		{name: "zero attempts", mutate: func(e *EmailConfig) { e.MaxAttempts = 0 }, wantErr: "limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatabaseConfigValidate(t *testing.T) {
	config := DefaultDatabaseConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default database config should be valid: %v", err)
	}

	config.MaxOpenConns = 0
	if err := config.Validate(); err == nil {
		t.Error("Expected error for zero max open connections")
	}

	config = DefaultDatabaseConfig()
	config.Path = filepath.Join(t.TempDir(), "nested", "taxlator.db")
	if err := config.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(config.Path)); err != nil {
		t.Errorf("Expected database directory to exist: %v", err)
	}
}

func TestLoadRateTables_Default(t *testing.T) {
	tables, err := LoadRateTables(RateTablesConfig{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tables.Version != models.DefaultRateTableVersion {
		t.Errorf("Expected built-in version, got %s", tables.Version)
	}
}

func TestLoadRateTables_SampleFile(t *testing.T) {
	tables, err := LoadRateTables(RateTablesConfig{Path: filepath.Join("..", "..", "configs", "rates", "ng-2026.yaml")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	defaults := models.DefaultRateTables()
	if len(tables.PersonalIncome) != len(defaults.PersonalIncome) {
		t.Fatalf("Expected %d bands, got %d", len(defaults.PersonalIncome), len(tables.PersonalIncome))
	}
	for i, band := range tables.PersonalIncome {
		want := defaults.PersonalIncome[i]
		if !band.Rate.Equal(want.Rate) || !band.LowerBound.Equal(want.LowerBound) {
			t.Errorf("Band %d differs from built-in tables: %+v", i+1, band)
		}
	}
	if tables.PersonalIncome[len(tables.PersonalIncome)-1].UpperBound != nil {
		t.Error("Expected last band to be unbounded")
	}

	rate, err := tables.VATRate(models.VATTransactionDomestic)
	if err != nil || !rate.Equal(decimal.RequireFromString("0.075")) {
		t.Errorf("Expected domestic VAT 0.075, got %s (%v)", rate, err)
	}
	if !tables.MinimumTaxApplies(models.CompanySizeMultinational) {
		t.Error("Expected minimum tax to apply to multinationals")
	}
	if tables.EffectiveFrom.Year() != 2026 {
		t.Errorf("Expected effective year 2026, got %d", tables.EffectiveFrom.Year())
	}
}

func TestParseRateTables_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errPart string
	}{
		{
			name:    "malformed yaml",
			yaml:    "version: [",
			errPart: "failed to parse YAML",
		},
		{
			name:    "other jurisdiction",
			yaml:    "version: x\njurisdiction: GH\n",
			errPart: "unsupported jurisdiction",
		},
		{
			name: "gap in bands",
			yaml: `version: broken
personal_income:
  - { lower_bound: 0, upper_bound: 100, rate: 0 }
  - { lower_bound: 200, rate: 0.1 }
`,
			errPart: "does not continue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRateTables([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestLoadRateTables_MissingFile(t *testing.T) {
	_, err := LoadRateTables(RateTablesConfig{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Error("Expected error for missing file")
	}
}
