// Package config loads the service configuration from TOML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/shelf/pkg/openapi"
	"github.com/JaimeStill/shelf/pkg/storage"
	"github.com/JaimeStill/shelf/pkg/telemetry"
	"github.com/JaimeStill/shelf/pkg/tracing"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvShelfEnv             = "SHELF_ENV"
	EnvShelfShutdownTimeout = "SHELF_SHUTDOWN_TIMEOUT"
	EnvShelfVersion         = "SHELF_VERSION"
)

var storageEnv = &storage.Env{
	Root:     "SHELF_STORAGE_ROOT",
	DirMode:  "SHELF_STORAGE_DIR_MODE",
	FileMode: "SHELF_STORAGE_FILE_MODE",
}

var telemetryEnv = &telemetry.Env{
	Enabled:   "SHELF_TELEMETRY_ENABLED",
	BaseURL:   "SHELF_TELEMETRY_BASE_URL",
	Username:  "SHELF_TELEMETRY_USERNAME",
	Password:  "SHELF_TELEMETRY_PASSWORD",
	QueueSize: "SHELF_TELEMETRY_QUEUE_SIZE",
	Timeout:   "SHELF_TELEMETRY_TIMEOUT",
}

var tracingEnv = &tracing.Env{
	Enabled:     "SHELF_TRACING_ENABLED",
	Protocol:    "SHELF_TRACING_PROTOCOL",
	Endpoint:    "SHELF_TRACING_ENDPOINT",
	ServiceName: "SHELF_TRACING_SERVICE_NAME",
	SampleRatio: "SHELF_TRACING_SAMPLE_RATIO",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "SHELF_OPENAPI_TITLE",
	Description: "SHELF_OPENAPI_DESCRIPTION",
}

// Config is the root configuration for the Shelf service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Telemetry       telemetry.Config `toml:"telemetry"`
	Tracing         tracing.Config   `toml:"tracing"`
	OpenAPI         openapi.Config   `toml:"openapi"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the SHELF_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvShelfEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with config files resolved relative to dir.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{}

	base := filepath.Join(dir, BaseConfigFile)
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Telemetry.Merge(&overlay.Telemetry)
	c.Tracing.Merge(&overlay.Tracing)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Tracing.Finalize(tracingEnv); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvShelfShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvShelfVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvShelfEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
