// Package infrastructure provides core service initialization for application startup.
// It assembles the dependencies (logging, storage, metrics, telemetry, tracing)
// that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JaimeStill/shelf/internal/config"
	"github.com/JaimeStill/shelf/pkg/lifecycle"
	"github.com/JaimeStill/shelf/pkg/metrics"
	"github.com/JaimeStill/shelf/pkg/storage"
	"github.com/JaimeStill/shelf/pkg/telemetry"
	"github.com/JaimeStill/shelf/pkg/tracing"
)

// MetricsNamespace prefixes every exported metric name.
const MetricsNamespace = "shelf"

// Infrastructure holds the core systems required by all domain modules.
// Telemetry is nil when flow reporting is disabled.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
	Metrics   *metrics.Metrics
	Telemetry *telemetry.Reporter

	shutdownTracing tracing.ShutdownFunc
	shutdownTimeout time.Duration
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-provided logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	lc := lifecycle.New()

	m, err := metrics.New(MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	shutdownTracing, err := tracing.Init(lc.Context(), &cfg.Tracing, cfg.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	var reporter *telemetry.Reporter
	if cfg.Telemetry.IsEnabled() {
		sink := telemetry.NewHTTPSink(&cfg.Telemetry, nil)
		reporter = telemetry.NewReporter(&cfg.Telemetry, sink, m, logger)
	} else {
		logger.Info("telemetry disabled")
	}

	return &Infrastructure{
		Lifecycle:       lc,
		Logger:          logger,
		Storage:         store,
		Metrics:         m,
		Telemetry:       reporter,
		shutdownTracing: shutdownTracing,
		shutdownTimeout: cfg.ShutdownTimeoutDuration(),
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Storage and telemetry hooks are registered for startup, and the tracer
// provider is flushed on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	if i.Telemetry != nil {
		i.Telemetry.Start(i.Lifecycle)
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), i.shutdownTimeout)
		defer cancel()

		if err := i.shutdownTracing(ctx); err != nil {
			i.Logger.Warn("tracer provider shutdown failed", "error", err)
		}
	})

	return nil
}
