// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Directory for run records and the sqlite database (always absolute)
	Store       string // One of StoreFile, StoreSQLite, StorePostgres
	PostgresDSN string
	LogLevel    string
	Port        int
	DevMode     bool
	Comparison  *ComparisonConfig
	Archive     *ArchiveConfig
}

// ComparisonConfig holds the smoothing and scoring parameters of comparisons
type ComparisonConfig struct {
	RewardWindow     int
	LossWindow       int
	BucketSize       int
	SuccessThreshold float64
	ScaleMax         float64
}

// ArchiveConfig holds S3-compatible archive settings
type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Endpoint        string // Custom endpoint for R2/MinIO; empty uses AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // Cron expression with seconds field
	RetentionDays   int    // 0 keeps every archive
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRAINLOG_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		Store:       getEnv("TRAINLOG_STORE", StoreFile),
		PostgresDSN: getEnv("TRAINLOG_POSTGRES_DSN", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnvAsInt("GO_PORT", 8001),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		Comparison:  loadComparisonConfig(),
		Archive:     loadArchiveConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("TRAINLOG_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if c.Archive != nil && c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("TRAINLOG_ARCHIVE_BUCKET is required when the archive is enabled")
		}
		if c.Archive.AccessKeyID == "" || c.Archive.SecretAccessKey == "" {
			return fmt.Errorf("archive credentials are required when the archive is enabled")
		}
	}

	return nil
}

// RunsDir returns the directory holding file-backed run records
func (c *Config) RunsDir() string {
	return filepath.Join(c.DataDir, "training_logs")
}

func loadComparisonConfig() *ComparisonConfig {
	return &ComparisonConfig{
		RewardWindow:     getEnvAsInt("TRAINLOG_REWARD_WINDOW", 50),
		LossWindow:       getEnvAsInt("TRAINLOG_LOSS_WINDOW", 20),
		BucketSize:       getEnvAsInt("TRAINLOG_BUCKET_SIZE", 100),
		SuccessThreshold: getEnvAsFloat("TRAINLOG_SUCCESS_THRESHOLD", 200),
		ScaleMax:         getEnvAsFloat("TRAINLOG_SCALE_MAX", 100),
	}
}

func loadArchiveConfig() *ArchiveConfig {
	return &ArchiveConfig{
		Enabled:         getEnvAsBool("TRAINLOG_ARCHIVE_ENABLED", false),
		Bucket:          getEnv("TRAINLOG_ARCHIVE_BUCKET", ""),
		Prefix:          getEnv("TRAINLOG_ARCHIVE_PREFIX", "training_logs"),
		Endpoint:        getEnv("TRAINLOG_ARCHIVE_ENDPOINT", ""),
		Region:          getEnv("TRAINLOG_ARCHIVE_REGION", "auto"),
		AccessKeyID:     getEnv("TRAINLOG_ARCHIVE_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("TRAINLOG_ARCHIVE_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("TRAINLOG_ARCHIVE_SCHEDULE", "0 0 3 * * *"),
		RetentionDays:   getEnvAsInt("TRAINLOG_ARCHIVE_RETENTION_DAYS", 30),
	}
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
