package telemetry

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds the flow reporting endpoint and queue settings.
type Config struct {
	Enabled   *bool  `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	QueueSize int    `toml:"queue_size"`
	Timeout   string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled   string
	BaseURL   string
	Username  string
	Password  string
	QueueSize string
	Timeout   string
}

// IsEnabled reports whether flow reporting is on. Defaults to true.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// HasCredentials reports whether a dashboard login should be performed.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Username != "" {
		c.Username = overlay.Username
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.QueueSize != 0 {
		c.QueueSize = overlay.QueueSize
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8081"
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	if c.Timeout == "" {
		c.Timeout = "3s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				c.Enabled = &enabled
			}
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Username != "" {
		if v := os.Getenv(env.Username); v != "" {
			c.Username = v
		}
	}
	if env.Password != "" {
		if v := os.Getenv(env.Password); v != "" {
			c.Password = v
		}
	}
	if env.QueueSize != "" {
		if v := os.Getenv(env.QueueSize); v != "" {
			if size, err := strconv.Atoi(v); err == nil {
				c.QueueSize = size
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive: %d", c.QueueSize)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout %q", c.Timeout)
	}
	return nil
}
