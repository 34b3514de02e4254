package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	Database    DatabaseConfig
	Storage     StorageConfig
	JWT         JWTConfig
	RateTables  RateTablesConfig
	RateLimit   RateLimitConfig
	Email       EmailConfig
	CORSOrigins []string
}

// StorageConfig holds file storage configuration for exports
type StorageConfig struct {
	Type       string // "local" or "mock"
	LocalPath  string
	BaseURL    string
	MaxRetries int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

// RateTablesConfig selects the rate tables the engine runs on
type RateTablesConfig struct {
	// Path to a YAML rate table file. Empty means the built-in tables.
	Path string
}

// RateLimitConfig holds the per-client request limit
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// EmailConfig holds mail delivery and verification code settings
type EmailConfig struct {
	Provider     string // "smtp", "resend" or "log"
	FromEmail    string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string

	CodeTTL         time.Duration
	MaxAttempts     int
	MaxSendsPerHour int
}

// Validate checks that the selected provider has what it needs
func (e *EmailConfig) Validate() error {
	switch e.Provider {
	case "smtp":
		if e.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp email provider")
		}
		if e.SMTPPort < 1 || e.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
		}
	case "resend":
		if e.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for the resend email provider")
		}
	case "log":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of smtp, resend, log")
	}
	if e.Provider != "log" && e.FromEmail == "" {
		return fmt.Errorf("EMAIL_FROM is required")
	}
	if e.CodeTTL < time.Minute {
		return fmt.Errorf("VERIFICATION_CODE_TTL must be at least 1m")
	}
	if e.MaxAttempts < 1 || e.MaxSendsPerHour < 1 {
		return fmt.Errorf("verification limits must be positive")
	}
	return nil
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Set up Viper
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_PATH", "./data/taxlator.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 1)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 1)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("DB_BACKUP_ENABLED", false)
	viper.SetDefault("STORAGE_TYPE", "local")
	viper.SetDefault("STORAGE_LOCAL_PATH", "./data/files")
	viper.SetDefault("STORAGE_MAX_RETRIES", 3)
	viper.SetDefault("JWT_ISSUER", "taxlator-api")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("RATE_LIMIT_RPS", 100)
	viper.SetDefault("RATE_LIMIT_BURST", 200)
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("EMAIL_PROVIDER", "log")
	viper.SetDefault("EMAIL_FROM", "no-reply@taxlator.ng")
	viper.SetDefault("EMAIL_FROM_NAME", "Taxlator")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("VERIFICATION_CODE_TTL", "15m")
	viper.SetDefault("VERIFICATION_MAX_ATTEMPTS", 5)
	viper.SetDefault("VERIFICATION_MAX_SENDS_PER_HOUR", 5)

	config := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Port:        viper.GetString("PORT"),
		LogLevel:    viper.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Path:            viper.GetString("DB_PATH"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			AutoMigrate:     viper.GetBool("DB_AUTO_MIGRATE"),
			BackupEnabled:   viper.GetBool("DB_BACKUP_ENABLED"),
		},
		Storage: StorageConfig{
			Type:       viper.GetString("STORAGE_TYPE"),
			LocalPath:  viper.GetString("STORAGE_LOCAL_PATH"),
			BaseURL:    viper.GetString("STORAGE_BASE_URL"),
			MaxRetries: viper.GetInt("STORAGE_MAX_RETRIES"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			Issuer:      viper.GetString("JWT_ISSUER"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateTables: RateTablesConfig{
			Path: viper.GetString("RATE_TABLES_PATH"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetInt("RATE_LIMIT_RPS"),
			Burst:             viper.GetInt("RATE_LIMIT_BURST"),
		},
		Email: EmailConfig{
			Provider:        strings.ToLower(viper.GetString("EMAIL_PROVIDER")),
			FromEmail:       viper.GetString("EMAIL_FROM"),
			FromName:        viper.GetString("EMAIL_FROM_NAME"),
			SMTPHost:        viper.GetString("SMTP_HOST"),
			SMTPPort:        viper.GetInt("SMTP_PORT"),
			SMTPUsername:    viper.GetString("SMTP_USERNAME"),
			SMTPPassword:    viper.GetString("SMTP_PASSWORD"),
			ResendAPIKey:    viper.GetString("RESEND_API_KEY"),
			CodeTTL:         viper.GetDuration("VERIFICATION_CODE_TTL"),
			MaxAttempts:     viper.GetInt("VERIFICATION_MAX_ATTEMPTS"),
			MaxSendsPerHour: viper.GetInt("VERIFICATION_MAX_SENDS_PER_HOUR"),
		},
		CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the service cannot start with
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.JWT.ExpiryHours < 1 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be at least 1")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit values must be positive")
	}
	if err := c.Email.Validate(); err != nil {
		return err
	}
	return c.Database.Validate()
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// JWTExpiry returns the token lifetime
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWT.ExpiryHours) * time.Hour
}

// NewLogger builds the application logger: JSON in production, text otherwise
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsInt gets an environment variable as integer with a fallback value
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// GetEnvAsBool gets an environment variable as boolean with a fallback value
func GetEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
