// Package config provides YAML-based session configuration for the client.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport mode names accepted in configuration.
const (
	TransportBidi = "bidi"
	TransportRere = "rere"
)

// Config is the root session configuration consumed by the client engine.
type Config struct {
	// ServerAddress of the coordinator. Optional scheme prefix selects the
	// carrier: tcp:// (default), tls:// or quic://.
	ServerAddress string `mapstructure:"server_address"`

	// Transport mode: bidi (persistent duplex stream) or rere
	// (request/response polling).
	Transport string `mapstructure:"transport"`

	// TLS material for tls:// and quic:// addresses.
	TLS TLSConfig `mapstructure:"tls"`

	// PollIntervalMS is the idle wait between empty polls (rere).
	PollIntervalMS int `mapstructure:"poll_interval_ms"`

	// Backoff bounds reconnect behavior after transport failures.
	Backoff BackoffConfig `mapstructure:"backoff"`

	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`
}

// TLSConfig points at optional root-certificate material.
type TLSConfig struct {
	RootCAFile string `mapstructure:"root_ca_file"`
	ServerName string `mapstructure:"server_name"`
	Insecure   bool   `mapstructure:"insecure"`
}

// BackoffConfig tunes the reconnect loop.
type BackoffConfig struct {
	InitialMS   int `mapstructure:"initial_ms"`
	MaxMS       int `mapstructure:"max_ms"`
	JitterMS    int `mapstructure:"jitter_ms"`
	MaxFailures int `mapstructure:"max_failures"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		ServerAddress:  "127.0.0.1:9092",
		Transport:      TransportRere,
		PollIntervalMS: 3000,
		Backoff: BackoffConfig{
			InitialMS:   500,
			MaxMS:       30000,
			JitterMS:    100,
			MaxFailures: 5,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (b BackoffConfig) Initial() time.Duration { return time.Duration(b.InitialMS) * time.Millisecond }
func (b BackoffConfig) Max() time.Duration     { return time.Duration(b.MaxMS) * time.Millisecond }
func (b BackoffConfig) Jitter() time.Duration  { return time.Duration(b.JitterMS) * time.Millisecond }

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides.
// Environment variables use the prefix FLWR and `.`/`-` are replaced with
// `_`. Example: FLWR_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FLWR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("server_address", cfg.ServerAddress)
	v.SetDefault("transport", cfg.Transport)
	v.SetDefault("poll_interval_ms", cfg.PollIntervalMS)
	v.SetDefault("tls.root_ca_file", cfg.TLS.RootCAFile)
	v.SetDefault("tls.server_name", cfg.TLS.ServerName)
	v.SetDefault("tls.insecure", cfg.TLS.Insecure)
	v.SetDefault("backoff.initial_ms", cfg.Backoff.InitialMS)
	v.SetDefault("backoff.max_ms", cfg.Backoff.MaxMS)
	v.SetDefault("backoff.jitter_ms", cfg.Backoff.JitterMS)
	v.SetDefault("backoff.max_failures", cfg.Backoff.MaxFailures)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("FLWR_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `flwr`
		v.SetConfigName("flwr")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".flwr"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ServerAddress) == "" {
		return errors.New("server_address must not be empty")
	}

	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportBidi, TransportRere:
	default:
		return fmt.Errorf("invalid transport: %q (want %s or %s)", c.Transport, TransportBidi, TransportRere)
	}

	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", c.PollIntervalMS)
	}
	if c.Backoff.InitialMS <= 0 || c.Backoff.MaxMS < c.Backoff.InitialMS {
		return fmt.Errorf("backoff bounds invalid: initial_ms=%d max_ms=%d", c.Backoff.InitialMS, c.Backoff.MaxMS)
	}
	if c.Backoff.MaxFailures <= 0 {
		return fmt.Errorf("backoff.max_failures must be positive, got %d", c.Backoff.MaxFailures)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
