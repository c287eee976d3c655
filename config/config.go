// Package config provides configuration loading for the booking engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Sweeper SweeperConfig `yaml:"sweeper"`
}

// Duration wraps time.Duration so YAML files can use "5m" / "1h" forms,
// which yaml.v3 will not decode into a bare time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	// Path is the SQLite database file (default: "./bookings.db")
	Path string `yaml:"path"`
}

// SweeperConfig configures the background expiry sweep.
type SweeperConfig struct {
	// Enabled toggles the background goroutine; the manual
	// /api/admin/reconcile endpoint works either way
	Enabled bool `yaml:"enabled"`
	// Interval is the time between sweeps (default: 15m)
	Interval Duration `yaml:"interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Path: "./bookings.db",
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Interval: Duration(15 * time.Minute),
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval.Std() <= 0 {
		return fmt.Errorf("sweeper.interval must be positive")
	}
	return nil
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
