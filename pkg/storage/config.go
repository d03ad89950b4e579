package storage

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

// Config holds local filesystem storage parameters.
type Config struct {
	Root     string `toml:"root"`
	DirMode  string `toml:"dir_mode"`
	FileMode string `toml:"file_mode"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Root     string
	DirMode  string
	FileMode string
}

// DirPerm returns DirMode as an fs.FileMode.
func (c *Config) DirPerm() fs.FileMode {
	return parseMode(c.DirMode, 0755)
}

// FilePerm returns FileMode as an fs.FileMode.
func (c *Config) FilePerm() fs.FileMode {
	return parseMode(c.FileMode, 0644)
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
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	if overlay.DirMode != "" {
		c.DirMode = overlay.DirMode
	}
	if overlay.FileMode != "" {
		c.FileMode = overlay.FileMode
	}
}

func (c *Config) loadDefaults() {
	if c.Root == "" {
		c.Root = "pdfs"
	}
	if c.DirMode == "" {
		c.DirMode = "0755"
	}
	if c.FileMode == "" {
		c.FileMode = "0644"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Root != "" {
		if v := os.Getenv(env.Root); v != "" {
			c.Root = v
		}
	}
	if env.DirMode != "" {
		if v := os.Getenv(env.DirMode); v != "" {
			c.DirMode = v
		}
	}
	if env.FileMode != "" {
		if v := os.Getenv(env.FileMode); v != "" {
			c.FileMode = v
		}
	}
}

func (c *Config) validate() error {
	if c.Root == "" {
		return fmt.Errorf("root required")
	}
	if _, err := strconv.ParseUint(c.DirMode, 8, 32); err != nil {
		return fmt.Errorf("invalid dir_mode %q: %w", c.DirMode, err)
	}
	if _, err := strconv.ParseUint(c.FileMode, 8, 32); err != nil {
		return fmt.Errorf("invalid file_mode %q: %w", c.FileMode, err)
	}
	return nil
}

func parseMode(s string, fallback fs.FileMode) fs.FileMode {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fallback
	}
	return fs.FileMode(v)
}
