package config

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the whole config and returns the first problem found.
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		return err
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if err := v.ValidateIngest(cfg.Ingest); err != nil {
		return err
	}
	if cfg.Recordings.Retention.Enabled {
		if err := v.ValidateRetention(cfg.Recordings.Retention); err != nil {
			return err
		}
	}
	if cfg.Recordings.Dir != "" {
		if err := v.ValidateRecordingsDir(cfg.Recordings.Dir); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePort validates a TCP port number
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1-65535)", port)
	}
	return nil
}

// ValidateLogLevel validates a zerolog level name
func (v *Validator) ValidateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return nil
}

// ValidateIngest validates ingest limits
func (v *Validator) ValidateIngest(cfg IngestConfig) error {
	if cfg.MaxChunkSizeMB < 1 {
		return fmt.Errorf("max_chunk_size_mb must be at least 1")
	}
	if cfg.RateLimitPerMinute < 1 {
		return fmt.Errorf("rate_limit_per_minute must be at least 1")
	}
	if cfg.StopTimeoutSeconds < 1 {
		return fmt.Errorf("stop_timeout_seconds must be at least 1")
	}
	return nil
}

// ValidateRetention validates the retention sweeper settings
func (v *Validator) ValidateRetention(cfg RetentionConfig) error {
	if cfg.MaxAgeHours < 1 {
		return fmt.Errorf("retention max_age_hours must be at least 1")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", cfg.Schedule, err)
	}
	return nil
}

// ValidateRecordingsDir checks the recordings directory is usable if it
// already exists. A missing directory is created at startup.
func (v *Validator) ValidateRecordingsDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat recordings dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("recordings dir %q is not a directory", dir)
	}
	return nil
}
