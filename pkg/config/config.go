package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sdejongh/filesage/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Policies           []models.Policy         `yaml:"policies"`
	Confirmation       models.ConfirmationMode `yaml:"confirmation"`
	LocalMethod        models.LocalMethod      `yaml:"local_method"`
	EnforceContentType bool                    `yaml:"enforce_content_type"`
	TempDir            string                  `yaml:"temp_dir"`
	Network            NetworkConfig           `yaml:"network"`
	Hashing            HashingConfig           `yaml:"hashing"`
	Performance        PerformanceConfig       `yaml:"performance"`
	Output             OutputConfig            `yaml:"output"`
	Logging            LoggingConfig           `yaml:"logging"`
}

// NetworkConfig holds settings for remote requests
type NetworkConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	Backoff        string        `yaml:"backoff"` // "none" or "exponential"
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BandwidthLimit int64         `yaml:"bandwidth_limit"` // bytes per second, 0 = unlimited
	UserAgent      string        `yaml:"user_agent"`
}

// HashingConfig holds chunk sizes used by digests and streaming
type HashingConfig struct {
	PartialChunkSize int64 `yaml:"partial_chunk_size"`
	StreamChunkSize  int   `yaml:"stream_chunk_size"`
	PreferPartial    bool  `yaml:"prefer_partial"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = stderr)
}

const (
	BackoffNone        = "none"
	BackoffExponential = "exponential"
)

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Policies:           models.DefaultPolicies(),
		Confirmation:       models.ConfirmFirstSuccess,
		LocalMethod:        models.LocalAuto,
		EnforceContentType: false,
		TempDir:            filepath.Join(os.TempDir(), "filesage"),
		Network: NetworkConfig{
			Timeout:        30 * time.Second,
			MaxRetries:     2,
			Backoff:        BackoffNone,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			BandwidthLimit: 0,
			UserAgent:      "filesage",
		},
		Hashing: HashingConfig{
			PartialChunkSize: 64 * 1024,
			StreamChunkSize:  64 * 1024,
			PreferPartial:    false,
		},
		Performance: PerformanceConfig{
			MaxWorkers: 4,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: false,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Format:  "text",
			Level:   "info",
			File:    "",
		},
	}
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	clone.Policies = append([]models.Policy(nil), c.Policies...)
	return &clone
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for i, p := range c.Policies {
		if err := p.Validate(); err != nil {
			return &models.ValidationError{
				Field:   fmt.Sprintf("policies[%d]", i),
				Message: err.Error(),
			}
		}
	}

	if c.Confirmation != models.ConfirmFirstSuccess && c.Confirmation != models.ConfirmAll {
		return &models.ValidationError{
			Field:   "confirmation",
			Message: "must be 'first-success' or 'all'",
		}
	}

	if c.LocalMethod != models.LocalAuto && c.LocalMethod != models.LocalDigest {
		return &models.ValidationError{
			Field:   "local_method",
			Message: "must be 'auto' or 'digest'",
		}
	}

	if c.Network.Timeout <= 0 {
		return &models.ValidationError{
			Field:   "network.timeout",
			Message: "must be positive",
		}
	}

	if c.Network.MaxRetries < 0 {
		return &models.ValidationError{
			Field:   "network.max_retries",
			Message: "must not be negative",
		}
	}

	if c.Network.Backoff != BackoffNone && c.Network.Backoff != BackoffExponential {
		return &models.ValidationError{
			Field:   "network.backoff",
			Message: "must be 'none' or 'exponential'",
		}
	}

	if c.Network.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "network.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	if c.Hashing.PartialChunkSize <= 0 {
		return &models.ValidationError{
			Field:   "hashing.partial_chunk_size",
			Message: "must be positive",
		}
	}

	if c.Hashing.StreamChunkSize <= 0 {
		return &models.ValidationError{
			Field:   "hashing.stream_chunk_size",
			Message: "must be positive",
		}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
