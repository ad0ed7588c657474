// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Reconciliation settings
	DefaultFeePercent  float64 // Fee applied to venues created without an explicit fee
	ReportWindowMinHrs int     // Lower bound of the expected gap between daily reports
	ReportWindowMaxHrs int     // Upper bound of the expected gap between daily reports
	QualityReviewFloor int     // Scores below this are flagged for operator review
	IngestSharedSecret string  // Shared secret for hardware ingestion endpoints (optional)
	AllowedOrigins     string  // Comma-separated CORS origins, "*" for all
	RateLimitPerMinute int
}

const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultFeePercentValue = 5.0
	DefaultWindowMinHrs    = 20
	DefaultWindowMaxHrs    = 28
	DefaultReviewFloor     = 70
	DefaultRateLimit       = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		DefaultFeePercent:  getEnvFloat("DEFAULT_FEE_PERCENT", DefaultFeePercentValue),
		ReportWindowMinHrs: int(getEnvInt64("REPORT_WINDOW_MIN_HOURS", DefaultWindowMinHrs)),
		ReportWindowMaxHrs: int(getEnvInt64("REPORT_WINDOW_MAX_HOURS", DefaultWindowMaxHrs)),
		QualityReviewFloor: int(getEnvInt64("QUALITY_REVIEW_FLOOR", DefaultReviewFloor)),
		IngestSharedSecret: os.Getenv("INGEST_SHARED_SECRET"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		RateLimitPerMinute: int(getEnvInt64("RATE_LIMIT_PER_MINUTE", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and coherent
func (c *Config) Validate() error {
	if c.DefaultFeePercent < 0 || c.DefaultFeePercent > 100 {
		return fmt.Errorf("DEFAULT_FEE_PERCENT must be between 0 and 100, got %v", c.DefaultFeePercent)
	}

	if c.ReportWindowMinHrs <= 0 || c.ReportWindowMaxHrs <= c.ReportWindowMinHrs {
		return fmt.Errorf("report window must satisfy 0 < min < max, got [%d, %d]",
			c.ReportWindowMinHrs, c.ReportWindowMaxHrs)
	}

	if c.QualityReviewFloor < 0 || c.QualityReviewFloor > 100 {
		return fmt.Errorf("QUALITY_REVIEW_FLOOR must be between 0 and 100, got %d", c.QualityReviewFloor)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
