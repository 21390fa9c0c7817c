package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chainreact/pkg/errors"
)

// Validate validates the complete configuration
func (c *Config) Validate() error {
	errs := errors.NewErrorList()

	if c.Database.Host == "" {
		errs.Add(errors.ValidationError(errors.CodeMissingField, "database host is required"))
	}
	if c.Database.Database == "" {
		errs.Add(errors.ValidationError(errors.CodeMissingField, "database name is required"))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" && c.Environment == "production" {
		errs.Add(errors.ValidationError(errors.CodeMissingField, "JWT secret is required in production"))
	}
	if c.AI.APIKey == "" && c.Environment == "production" {
		errs.Add(errors.ValidationError(errors.CodeMissingField, "AI API key is required in production"))
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs.Add(errors.ValidationError(errors.CodeInvalidInput, "API port must be between 1 and 65535"))
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		errs.Add(errors.ValidationError(errors.CodeInvalidInput, "metrics port must be between 1 and 65535"))
	}

	if c.API.ReadTimeout < 0 {
		errs.Add(errors.ValidationError(errors.CodeInvalidInput, "API read timeout cannot be negative"))
	}
	if c.API.WriteTimeout < 0 {
		errs.Add(errors.ValidationError(errors.CodeInvalidInput, "API write timeout cannot be negative"))
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs.Add(errors.ValidationError(errors.CodeMissingField, "at least one Kafka broker is required"))
	}

	if c.Storage.Provider == "s3" {
		if c.Storage.S3Config.Bucket == "" {
			errs.Add(errors.ValidationError(errors.CodeMissingField, "S3 bucket is required when using S3 storage"))
		}
	}

	if c.Worker.Enabled && c.Worker.Concurrency < 1 {
		errs.Add(errors.ValidationError(errors.CodeInvalidInput, "worker concurrency must be at least 1"))
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.Username, c.Database.Password, c.Database.Database, c.Database.SSLMode)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if running in test mode
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

// Helper functions for loading environment variables

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if duration parsing fails
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// Global configuration instance
var globalConfig *Config

// GetConfig returns the global configuration instance
func GetConfig() *Config {
	return globalConfig
}

// SetConfig sets the global configuration instance
func SetConfig(config *Config) {
	globalConfig = config
}

// MustLoad loads configuration and panics if there's an error
func MustLoad() *Config {
	config, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	SetConfig(config)
	return config
}
