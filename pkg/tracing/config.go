package tracing

import (
	"fmt"
	"os"
	"strconv"
)

// Supported OTLP export protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds OpenTelemetry trace export settings.
type Config struct {
	Enabled     bool    `toml:"enabled"`
	Protocol    string  `toml:"protocol"`
	Endpoint    string  `toml:"endpoint"`
	ServiceName string  `toml:"service_name"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled     string
	Protocol    string
	Endpoint    string
	ServiceName string
	SampleRatio string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies; other fields
// only apply when non-zero.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.Protocol != "" {
		c.Protocol = overlay.Protocol
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.SampleRatio != 0 {
		c.SampleRatio = overlay.SampleRatio
	}
}

func (c *Config) loadDefaults() {
	if c.Protocol == "" {
		c.Protocol = ProtocolGRPC
	}
	if c.ServiceName == "" {
		c.ServiceName = "shelf"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1.0
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				c.Enabled = enabled
			}
		}
	}
	if env.Protocol != "" {
		if v := os.Getenv(env.Protocol); v != "" {
			c.Protocol = v
		}
	}
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.SampleRatio != "" {
		if v := os.Getenv(env.SampleRatio); v != "" {
			if ratio, err := strconv.ParseFloat(v, 64); err == nil {
				c.SampleRatio = ratio
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP {
		return fmt.Errorf("unsupported protocol %q", c.Protocol)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio must be within [0, 1]: %v", c.SampleRatio)
	}
	return nil
}
