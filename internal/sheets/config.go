// Package sheets provides Google Sheets API integration for the sync destination.
package sheets

import (
	"fmt"
	"time"
)

// Value input options accepted by the Sheets API.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ValueInputOption string
	BatchSize        int
	RetryAttempts    int
	RetryDelay       time.Duration
	DefaultRows      int64
	DefaultColumns   int64
	EnableFormatting bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		ValueInputOption: InputRaw,
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		DefaultRows:      1000,
		DefaultColumns:   20,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	if c.ValueInputOption != InputRaw && c.ValueInputOption != InputUserEntered {
		return fmt.Errorf("value input option must be %s or %s, got %q", InputRaw, InputUserEntered, c.ValueInputOption)
	}

	if c.DefaultRows <= 0 || c.DefaultColumns <= 0 {
		return fmt.Errorf("default worksheet dimensions must be positive")
	}

	return nil
}
