package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/shelf/internal/config"
	"github.com/JaimeStill/shelf/internal/infrastructure"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("SHELF_STORAGE_ROOT", filepath.Join(t.TempDir(), "pdfs"))
	t.Setenv("SHELF_TELEMETRY_ENABLED", "false")

	cfg, err := config.LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("server init failed: %v", err)
	}
	return srv
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.http.http.Handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestReadinessFollowsStartup(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, "GET", "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before start: got %d, want 503", rec.Code)
	}

	if err := srv.infra.Start(); err != nil {
		t.Fatalf("infrastructure start failed: %v", err)
	}
	srv.infra.Lifecycle.WaitForStartup()

	rec = serve(srv, "GET", "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz after start: got %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("readyz status: got %q, want ready", body["status"])
	}

	if err := srv.Shutdown(5 * time.Second); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestNativeRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"healthz", "/healthz", http.StatusOK},
		{"metrics", "/metrics", http.StatusOK},
		{"api reference", "/docs", http.StatusOK},
		{"openapi document", "/api/openapi.json", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(srv, "GET", tt.path); rec.Code != tt.status {
				t.Errorf("GET %s: got %d, want %d", tt.path, rec.Code, tt.status)
			}
		})
	}
}

func TestBuildHandlerWithoutTelemetry(t *testing.T) {
	infra := &infrastructure.Infrastructure{}
	called := false
	handler := buildHandler(infra, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("router not reached")
	}
}
