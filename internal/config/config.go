package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/batch"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Validation: ValidationConfig{
			UseCheck:  false,
			MinDigits: 1,
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxBodyKB:         256,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RateLimitEnabled:  false,
			RequestsPerMinute: 120,
			RequestsPerHour:   3000,
			MaxRequestsPerDay: 20000,
			MaxDataPerDay:     100 * 1024 * 1024,
		},
		Batch: BatchConfig{
			Workers:            4,
			ProgressIntervalMS: 1000,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Validation.MinDigits < 0 {
		return fmt.Errorf("invalid validation min digits: %d (must not be negative)", c.Validation.MinDigits)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if err := validatePositive(c.Server.MaxBodyKB, "max body size"); err != nil {
		return err
	}
	if err := validatePositive(c.Server.TimeoutSec, "timeout"); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimitEnabled {
		if err := validatePositive(c.Server.RequestsPerMinute, "requests per minute"); err != nil {
			return err
		}
		if c.Server.RequestsPerHour < 0 || c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDay < 0 {
			return fmt.Errorf("invalid rate limit quotas: must not be negative")
		}
	}

	if err := validatePositive(c.Batch.Workers, "batch workers"); err != nil {
		return err
	}
	if c.Batch.ProgressIntervalMS < 0 {
		return fmt.Errorf("invalid batch progress interval: %d ms (must not be negative)", c.Batch.ProgressIntervalMS)
	}

	return nil
}

// ToBarcodeOptions converts the validation defaults to decoder options.
func (c *Config) ToBarcodeOptions() barcode.Options {
	return barcode.Options{
		UseCheck:  c.Validation.UseCheck,
		MinDigits: c.Validation.MinDigits,
	}
}

// ToBatchConfig converts to the batch validator configuration.
func (c *Config) ToBatchConfig() batch.Config {
	return batch.Config{Workers: c.Batch.Workers}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validatePositive rejects zero and negative values.
func validatePositive(value int, name string) error {
	if value <= 0 {
		return fmt.Errorf("invalid %s: %d (must be positive)", name, value)
	}
	return nil
}
