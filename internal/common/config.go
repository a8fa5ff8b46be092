package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Stores StoresConfig
	Ledger LedgerConfig
	Audit  AuditConfig
}

// StoresConfig holds the file-backed store locations
type StoresConfig struct {
	DraftDBPath   string
	AuditDBPath   string
	DirectoryPath string
}

// LedgerConfig holds spreadsheet ledger locations
type LedgerConfig struct {
	BranchDir      string
	StaffDir       string
	BranchTemplate string
	StaffTemplate  string
}

// AuditConfig holds the bounded-retry knobs for the audit store
type AuditConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is merged in first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Stores: StoresConfig{
			DraftDBPath:   getEnv("DRAFT_DB_PATH", "data/drafts.db"),
			AuditDBPath:   getEnv("AUDIT_DB_PATH", "data/audit.db"),
			DirectoryPath: getEnv("DIRECTORY_PATH", "config/locations.json"),
		},
		Ledger: LedgerConfig{
			BranchDir:      getEnv("LEDGER_BRANCH_DIR", "data/accumulation/locations"),
			StaffDir:       getEnv("LEDGER_STAFF_DIR", "data/accumulation/staff"),
			BranchTemplate: getEnv("LEDGER_BRANCH_TEMPLATE", "templates/branch.xlsx"),
			StaffTemplate:  getEnv("LEDGER_STAFF_TEMPLATE", "templates/staff.xlsx"),
		},
		Audit: AuditConfig{
			MaxRetries: getEnvAsInt("AUDIT_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("AUDIT_RETRY_DELAY", 100*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Stores.DraftDBPath == "" {
		return NewAppError("CONFIG_ERROR", "DRAFT_DB_PATH is required", ErrInvalidInput)
	}
	if c.Stores.AuditDBPath == "" {
		return NewAppError("CONFIG_ERROR", "AUDIT_DB_PATH is required", ErrInvalidInput)
	}
	if c.Stores.DirectoryPath == "" {
		return NewAppError("CONFIG_ERROR", "DIRECTORY_PATH is required", ErrInvalidInput)
	}
	if c.Audit.MaxRetries < 1 {
		return NewAppError("CONFIG_ERROR", "AUDIT_MAX_RETRIES must be at least 1", ErrInvalidInput)
	}
	return nil
}
