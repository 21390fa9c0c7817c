// Package config provides utilities for loading environment files.
package config

import (
	"fmt"
	"os"
	"strings"

	"chainreact/pkg/logger"
)

// EnvironmentLoader provides utilities for loading environment files
type EnvironmentLoader struct {
	logger logger.Logger
}

// NewEnvironmentLoader creates a new environment loader
func NewEnvironmentLoader(logger logger.Logger) *EnvironmentLoader {
	return &EnvironmentLoader{
		logger: logger,
	}
}

// LoadEnvFile loads environment variables from a .env file.
// Values already present in the environment are never overwritten.
func (el *EnvironmentLoader) LoadEnvFile(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil // Missing files are not an error
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read environment file %s: %w", filename, err)
	}

	lines := strings.Split(string(content), "\n")
	for lineNum, line := range lines {
		line = strings.TrimSpace(line)

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			el.logger.Warn("Invalid line in environment file",
				"file", filename,
				"line", lineNum+1,
				"content", line)
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove surrounding quotes if present
		if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
			(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
			value = value[1 : len(value)-1]
		}

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				el.logger.Warn("Failed to set environment variable",
					"key", key,
					"error", err)
			}
		}
	}

	el.logger.Debug("Loaded environment file", "file", filename)
	return nil
}

// LoadEnvFiles loads multiple environment files in order
func (el *EnvironmentLoader) LoadEnvFiles(filenames ...string) error {
	for _, filename := range filenames {
		if err := el.LoadEnvFile(filename); err != nil {
			return err
		}
	}
	return nil
}

// LoadEnvironmentWithDefaults loads environment files from the default locations
func (el *EnvironmentLoader) LoadEnvironmentWithDefaults() error {
	envFiles := []string{
		".env.local",   // Local overrides (highest priority)
		".env",         // Main environment file
		"configs/.env", // Config directory
	}

	return el.LoadEnvFiles(envFiles...)
}
