package documents

import "time"

// DefaultMaxUploadSize is the upload limit applied when Config leaves it unset.
const DefaultMaxUploadSize int64 = 50 << 20

// Config holds the document system's construction parameters.
type Config struct {
	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64
	// Clock supplies the ingestion timestamp. Defaults to time.Now.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
