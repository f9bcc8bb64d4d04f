package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main capturd configuration
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Recordings
	Recordings RecordingsConfig `json:"recordings" mapstructure:"recordings"`

	// Ingest
	Ingest IngestConfig `json:"ingest" mapstructure:"ingest"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP/WebSocket server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// RecordingsConfig holds recording storage configuration
type RecordingsConfig struct {
	Dir       string          `json:"dir" mapstructure:"dir"`
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`
	Watcher   WatcherConfig   `json:"watcher" mapstructure:"watcher"`
}

// RetentionConfig holds the retention sweeper settings
type RetentionConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	MaxAgeHours int    `json:"max_age_hours" mapstructure:"max_age_hours"`
	Schedule    string `json:"schedule" mapstructure:"schedule"` // cron expression
}

// WatcherConfig holds the recordings directory watcher settings
type WatcherConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// IngestConfig holds chunk ingest limits
type IngestConfig struct {
	MaxChunkSizeMB     int `json:"max_chunk_size_mb" mapstructure:"max_chunk_size_mb"`
	RateLimitPerMinute int `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	StopTimeoutSeconds int `json:"stop_timeout_seconds" mapstructure:"stop_timeout_seconds"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `json:"level" mapstructure:"level"`
	File     string `json:"file" mapstructure:"file"`
	Console  bool   `json:"console" mapstructure:"console"`
	Pretty   bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize  int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge   int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Recordings: RecordingsConfig{
			Retention: RetentionConfig{
				Enabled:     true,
				MaxAgeHours: 168,
				Schedule:    "0 * * * *",
			},
			Watcher: WatcherConfig{
				Enabled: true,
			},
		},
		Ingest: IngestConfig{
			MaxChunkSizeMB:     50,
			RateLimitPerMinute: 600,
			StopTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			MaxSize: 100,
			MaxAge:  14,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
