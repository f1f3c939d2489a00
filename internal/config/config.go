// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for all databases (always absolute)
	LogLevel    string
	CatalogFile string // Optional YAML file overriding the default catalog
	RedisAddr   string // Price cache goes to Redis when set, SQLite otherwise
	YahooURL    string
	Port        int
	DevMode     bool
	// VerifySymbols asks the price feed whether a symbol exists before recording it
	VerifySymbols bool

	PriceTimeout   time.Duration
	PriceCacheTTL  time.Duration
	PriceRateLimit float64 // requests per second against the price feed

	Backup    BackupConfig
	Schedules ScheduleConfig

	Catalog *Catalog
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Custom endpoint for R2/MinIO, empty for AWS
	Region          string
	AccessKeyID     string // Falls back to the default AWS credential chain when empty
	SecretAccessKey string
	Schedule        string
	RetentionDays   int // 0 keeps every backup
}

// Enabled reports whether a bucket has been configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// ScheduleConfig holds cron expressions for background jobs
type ScheduleConfig struct {
	CacheCleanup string
	AlertSweep   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HOLDFAST_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("HOLDFAST_PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CatalogFile:    getEnv("CATALOG_FILE", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		YahooURL:       getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		VerifySymbols:  getEnvAsBool("VERIFY_SYMBOLS", false),
		PriceTimeout:   getEnvAsDuration("PRICE_TIMEOUT", 5*time.Second),
		PriceCacheTTL:  getEnvAsDuration("PRICE_CACHE_TTL", 30*time.Second),
		PriceRateLimit: getEnvAsFloat("PRICE_RATE_LIMIT", 5),
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		Schedules: ScheduleConfig{
			CacheCleanup: getEnv("CACHE_CLEANUP_SCHEDULE", "0 */10 * * * *"),
			AlertSweep:   getEnv("ALERT_SWEEP_SCHEDULE", "0 */15 * * * *"),
		},
	}

	if cfg.CatalogFile != "" {
		catalog, err := LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		cfg.Catalog = catalog
	} else {
		cfg.Catalog = DefaultCatalog()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PriceTimeout <= 0 {
		return fmt.Errorf("PRICE_TIMEOUT must be positive")
	}
	if c.PriceCacheTTL < 0 {
		return fmt.Errorf("PRICE_CACHE_TTL must not be negative")
	}
	if c.PriceRateLimit <= 0 {
		return fmt.Errorf("PRICE_RATE_LIMIT must be positive")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative")
	}
	if c.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	return c.Catalog.Validate()
}

// LedgerDBPath is the location of the ledger database
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// ClientDataDBPath is the location of the price cache database
func (c *Config) ClientDataDBPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
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
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

// getEnvAsDuration accepts Go durations ("5s") or bare seconds ("5")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
