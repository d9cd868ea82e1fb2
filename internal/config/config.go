package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Flow       FlowConfig       `yaml:"flow"`
	Relay      RelayConfig      `yaml:"relay"`
	Scrollback ScrollbackConfig `yaml:"scrollback"`
	Record     RecordConfig     `yaml:"record"`
	Profiles   ProfilesConfig   `yaml:"profiles"`
	Logging    LogConfig        `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"7070" yaml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" yaml:"host"`
}

// SessionConfig holds PTY session configuration.
type SessionConfig struct {
	// Shell overrides the platform shell for shell-role sessions. Empty
	// means resolve from the environment.
	Shell        string        `envconfig:"SHELL_OVERRIDE" default:"" yaml:"shell"`
	DefaultCols  uint16        `envconfig:"DEFAULT_COLS" default:"80" yaml:"default_cols"`
	DefaultRows  uint16        `envconfig:"DEFAULT_ROWS" default:"24" yaml:"default_rows"`
	ProbeTimeout time.Duration `envconfig:"ENV_PROBE_TIMEOUT" default:"5s" yaml:"probe_timeout"`
}

// FlowConfig holds output backpressure watermarks, in bytes.
type FlowConfig struct {
	HighWatermark int `envconfig:"FLOW_HIGH_WATERMARK" default:"500000" yaml:"high_watermark"`
	LowWatermark  int `envconfig:"FLOW_LOW_WATERMARK" default:"50000" yaml:"low_watermark"`
}

// RelayConfig holds output frame timing.
type RelayConfig struct {
	FlushInterval time.Duration `envconfig:"RELAY_FLUSH_INTERVAL" default:"16ms" yaml:"flush_interval"`
}

// ScrollbackConfig bounds per-session replay history.
type ScrollbackConfig struct {
	Limit int `envconfig:"SCROLLBACK_LIMIT" default:"262144" yaml:"limit"`
}

// RecordConfig holds transcript recording configuration.
type RecordConfig struct {
	Enabled bool   `envconfig:"RECORD_ENABLED" default:"false" yaml:"enabled"`
	Dir     string `envconfig:"RECORD_DIR" default:"" yaml:"dir"`
	// Patterns selects which session titles get recorded, glob syntax.
	Patterns []string `envconfig:"RECORD_PATTERNS" default:"**" yaml:"patterns"`
}

// ProfilesConfig holds launch profile configuration.
type ProfilesConfig struct {
	Path string `envconfig:"PROFILES_PATH" default:"" yaml:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from the environment and then overlays the
// YAML file at path. Keys absent from the file keep their environment or
// default values; an explicitly passed file that cannot be read is an error.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "7070",
			Host: "127.0.0.1",
		},
		Session: SessionConfig{
			DefaultCols:  80,
			DefaultRows:  24,
			ProbeTimeout: 5 * time.Second,
		},
		Flow: FlowConfig{
			HighWatermark: 500000,
			LowWatermark:  50000,
		},
		Relay: RelayConfig{
			FlushInterval: 16 * time.Millisecond,
		},
		Scrollback: ScrollbackConfig{
			Limit: 262144,
		},
		Record: RecordConfig{
			Enabled:  false,
			Patterns: []string{"**"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
