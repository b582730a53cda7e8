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
	// Alpaca credentials and endpoints
	AlpacaAPIKey    string
	AlpacaAPISecret string
	AlpacaBaseURL   string // Paper or live trading endpoint
	AlpacaDataURL   string // Market data endpoint

	// Signal source
	SymphonyName    string // Name of the symphony (strategy) to trade
	SignalBucket    string // S3 bucket holding the signal file
	SignalKey       string // Object key of the signal file
	SignalRegion    string // Bucket region
	CredentialsFile string // Path to the cloud-storage credentials file
	SignalAccessKey string // Static cloud-storage access key (optional)
	SignalSecretKey string // Static cloud-storage secret key (optional)
	SignalFile      string // Local signal file path (overrides the bucket when set)

	// Rebalance parameters
	CashWeight  float64       // Multiplier on equity for tradable capital (1.15 = 115%)
	MinOrderQty float64       // Deltas below this many shares are dropped
	Timeout     time.Duration // Applied to outbound calls and order-fill waits

	// Runtime
	Schedule string // Cron expression for the local runner
	DataDir  string // Base directory for the run journal and log files
	LogLevel string
	Port     int
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("REBALANCER_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Cash weight arrives as a decimal string ("1.15" = use 115% of equity)
	cashWeight, err := getEnvAsFloat("CASH_WEIGHT", 1.0)
	if err != nil {
		return nil, fmt.Errorf("invalid CASH_WEIGHT: %w", err)
	}

	minOrderQty, err := getEnvAsFloat("MIN_ORDER_QTY", 1.0)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_ORDER_QTY: %w", err)
	}

	cfg := &Config{
		AlpacaAPIKey:    getEnv("ALPACA_API_KEY", ""),
		AlpacaAPISecret: getEnv("ALPACA_SECRET_KEY", ""),
		AlpacaBaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		AlpacaDataURL:   getEnv("ALPACA_DATA_URL", "https://data.alpaca.markets"),
		SymphonyName:    getEnv("SYMPHONY_NAME", ""),
		SignalBucket:    getEnv("SIGNAL_BUCKET", ""),
		SignalKey:       getEnv("SIGNAL_KEY", ""),
		SignalRegion:    getEnv("SIGNAL_REGION", "us-east-1"),
		CredentialsFile: getEnv("SIGNAL_CREDENTIALS_FILE", ""),
		SignalAccessKey: getEnv("SIGNAL_ACCESS_KEY_ID", ""),
		SignalSecretKey: getEnv("SIGNAL_SECRET_ACCESS_KEY", ""),
		SignalFile:      getEnv("SIGNAL_FILE", ""),
		CashWeight:      cashWeight,
		MinOrderQty:     minOrderQty,
		Timeout:         time.Duration(getEnvAsInt("TIMEOUT_SECONDS", 60)) * time.Second,
		Schedule:        getEnv("REBALANCE_SCHEDULE", "0 35 9 * * MON-FRI"),
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.AlpacaAPIKey == "" || c.AlpacaAPISecret == "" {
		return fmt.Errorf("ALPACA_API_KEY and ALPACA_SECRET_KEY are required")
	}
	if c.SymphonyName == "" {
		return fmt.Errorf("SYMPHONY_NAME is required")
	}
	if c.SignalFile == "" && (c.SignalBucket == "" || c.SignalKey == "") {
		return fmt.Errorf("signal source required: set SIGNAL_FILE or SIGNAL_BUCKET and SIGNAL_KEY")
	}
	if c.CashWeight <= 0 {
		return fmt.Errorf("CASH_WEIGHT must be positive, got %v", c.CashWeight)
	}
	if c.MinOrderQty < 0 {
		return fmt.Errorf("MIN_ORDER_QTY must not be negative, got %v", c.MinOrderQty)
	}
	return nil
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

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
