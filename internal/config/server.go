package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "SHELF_SERVER_HOST"
	EnvServerPort              = "SHELF_SERVER_PORT"
	EnvServerReadTimeout       = "SHELF_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "SHELF_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "SHELF_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout   = "SHELF_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP server parameters. Read and write timeouts bound a
// whole upload or download, so they are sized for the upload limit.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return mustDuration(c.ReadTimeout)
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return mustDuration(c.ReadHeaderTimeout)
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return mustDuration(c.WriteTimeout)
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.ReadTimeout != "" {
		c.ReadTimeout = overlay.ReadTimeout
	}
	if overlay.ReadHeaderTimeout != "" {
		c.ReadHeaderTimeout = overlay.ReadHeaderTimeout
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "5m"
	}
	if c.ReadHeaderTimeout == "" {
		c.ReadHeaderTimeout = "10s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvServerReadTimeout); v != "" {
		c.ReadTimeout = v
	}
	if v := os.Getenv(EnvServerReadHeaderTimeout); v != "" {
		c.ReadHeaderTimeout = v
	}
	if v := os.Getenv(EnvServerWriteTimeout); v != "" {
		c.WriteTimeout = v
	}
	if v := os.Getenv(EnvServerShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, v := range map[string]string{
		"read_timeout":        c.ReadTimeout,
		"read_header_timeout": c.ReadHeaderTimeout,
		"write_timeout":       c.WriteTimeout,
		"shutdown_timeout":    c.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
