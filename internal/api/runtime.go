package api

import (
	"github.com/JaimeStill/shelf/internal/config"
	"github.com/JaimeStill/shelf/internal/infrastructure"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	MaxUploadSize int64
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Storage:   infra.Storage,
			Metrics:   infra.Metrics,
			Telemetry: infra.Telemetry,
		},
		MaxUploadSize: cfg.API.MaxUploadSizeBytes(),
	}
}
