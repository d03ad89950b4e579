// Package telemetry reports one network flow record per handled request to an
// external dashboard. Reporting runs on a bounded queue drained by a single
// background worker, so request handling never waits on the dashboard.
package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/shelf/pkg/lifecycle"
	"github.com/JaimeStill/shelf/pkg/metrics"
)

// Flow outcomes recorded by the reporter.
const (
	ResultQueued  = "queued"
	ResultDropped = "dropped"
	ResultSent    = "sent"
	ResultFailed  = "failed"
)

// Reporter queues flows for asynchronous delivery to a Sink.
type Reporter struct {
	queue   chan Flow
	sink    Sink
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewReporter creates a reporter delivering to sink. m may be nil.
func NewReporter(cfg *Config, sink Sink, m *metrics.Metrics, logger *slog.Logger) *Reporter {
	return &Reporter{
		queue:   make(chan Flow, cfg.QueueSize),
		sink:    sink,
		timeout: cfg.TimeoutDuration(),
		metrics: m,
		logger:  logger.With("system", "telemetry"),
		now:     time.Now,
	}
}

// Start launches the delivery worker. On shutdown the worker flushes what is
// already queued, bounded by one send timeout overall.
func (r *Reporter) Start(lc *lifecycle.Coordinator) {
	r.logger.Info("starting flow reporter", "queue_size", cap(r.queue))
	lc.Go(r.run)
}

// Report enqueues flow without blocking. Returns false when the queue is full
// and the flow was dropped.
func (r *Reporter) Report(flow Flow) bool {
	if r == nil {
		return false
	}
	select {
	case r.queue <- flow:
		r.metrics.ObserveFlow(ResultQueued)
		return true
	default:
		r.metrics.ObserveFlow(ResultDropped)
		r.logger.Debug("flow dropped, queue full", "flow_key", flow.FlowKey)
		return false
	}
}

// Middleware reports a flow for every request after the handler returns.
// A nil reporter yields a pass-through middleware.
func (r *Reporter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			r.Report(NewFlow(req, r.now()))
		})
	}
}

func (r *Reporter) run(ctx context.Context) {
	for {
		select {
		case flow := <-r.queue:
			r.deliver(ctx, flow)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

func (r *Reporter) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	flushed := 0
	for {
		select {
		case flow := <-r.queue:
			if ctx.Err() != nil {
				r.metrics.ObserveFlow(ResultDropped)
				continue
			}
			r.deliver(ctx, flow)
			flushed++
		default:
			r.logger.Info("flow reporter stopped", "flushed", flushed)
			return
		}
	}
}

func (r *Reporter) deliver(parent context.Context, flow Flow) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	if err := r.sink.Send(ctx, flow); err != nil {
		r.metrics.ObserveFlow(ResultFailed)
		r.logger.Warn("flow delivery failed", "flow_key", flow.FlowKey, "error", err)
		return
	}
	r.metrics.ObserveFlow(ResultSent)
}
