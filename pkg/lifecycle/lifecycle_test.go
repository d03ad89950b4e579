package lifecycle_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/shelf/pkg/lifecycle"
)

type readiness struct{ ready atomic.Bool }

func (r *readiness) Ready() bool { return r.ready.Load() }

func TestNotReadyBeforeStartup(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Error("should not be ready before WaitForStartup")
	}
}

func TestStartupHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() {
			count.Add(1)
		})
	}

	lc.WaitForStartup()

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
	if !lc.Ready() {
		t.Error("should be ready after WaitForStartup")
	}
}

func TestReadinessCheckers(t *testing.T) {
	lc := lifecycle.New()
	rc := &readiness{}
	lc.AddReadiness(rc)
	lc.WaitForStartup()

	if lc.Ready() {
		t.Error("should not be ready while a checker reports not ready")
	}

	rc.ready.Store(true)
	if !lc.Ready() {
		t.Error("should be ready once every checker is ready")
	}
}

func TestShutdownHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !cleaned.Load() {
		t.Error("shutdown hook did not execute")
	}
}

func TestGoWorkerStopsOnShutdown(t *testing.T) {
	lc := lifecycle.New()

	var stopped atomic.Bool
	lc.Go(func(ctx context.Context) {
		<-ctx.Done()
		stopped.Store(true)
	})

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !stopped.Load() {
		t.Error("worker should finish before Shutdown returns")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestContextCancelledOnShutdown(t *testing.T) {
	lc := lifecycle.New()
	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context should be cancelled after shutdown")
	}
}
