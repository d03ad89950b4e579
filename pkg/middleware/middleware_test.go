package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/shelf/pkg/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestApplyOrder(t *testing.T) {
	var order []string
	mw := middleware.New()

	mw.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "first")
			next.ServeHTTP(w, r)
		})
	})

	mw.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "second")
			next.ServeHTTP(w, r)
		})
	})

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(order) != 3 {
		t.Fatalf("execution count: got %d, want 3", len(order))
	}
	if order[0] != "first" || order[1] != "second" || order[2] != "handler" {
		t.Errorf("order: got %v, want [first second handler]", order)
	}
}

func TestCORSDisabled(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: false, Origins: []string{"*"}}
	handler := middleware.CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://example.com")
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS headers should not be set when disabled")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"http://example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://example.com")
	middleware.CORS(cfg)(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("allow-origin: got %s, want http://example.com", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("allow-methods: got %s", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("max-age: got %s, want 3600", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://allowed.com"},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://denied.com")
	middleware.CORS(cfg)(okHandler()).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("should not set allow-origin for disallowed origin")
	}
}

func TestCORSWildcard(t *testing.T) {
	tests := []struct {
		name        string
		credentials bool
		want        string
	}{
		{"without credentials", false, "*"},
		{"with credentials echoes origin", true, "http://any.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &middleware.CORSConfig{
				Enabled:          true,
				Origins:          []string{"*"},
				AllowCredentials: tt.credentials,
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Origin", "http://any.example")
			middleware.CORS(cfg)(okHandler()).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("allow-origin: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"http://example.com"},
		AllowedMethods: []string{"GET", "DELETE"},
	}

	var handlerCalled bool
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/pdf/a.pdf", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d, want 204", rec.Code)
	}
	if handlerCalled {
		t.Error("handler should not be called for preflight")
	}
}

func TestCORSCredentials(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://example.com"},
		AllowCredentials: true,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://example.com")
	middleware.CORS(cfg)(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow-credentials: got %s, want true", got)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("request id should be generated")
	}
	if got := rec.Header().Get(middleware.RequestIDHeader); got != seen {
		t.Errorf("response header: got %q, want %q", got, seen)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc-123" {
		t.Errorf("request id: got %q, want abc-123", seen)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/pdf/missing.pdf", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "status=404") {
		t.Errorf("log should record status, got %s", out)
	}
	if !strings.Contains(out, "uri=/pdf/missing.pdf") {
		t.Errorf("log should record uri, got %s", out)
	}
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	rec := middleware.NewStatusRecorder(httptest.NewRecorder())
	io.WriteString(rec, "body")
	rec.WriteHeader(http.StatusTeapot)

	if rec.Status != http.StatusOK {
		t.Errorf("status: got %d, want 200 after implicit write", rec.Status)
	}
	if again := middleware.NewStatusRecorder(rec); again != rec {
		t.Error("wrapping a recorder should return it unchanged")
	}
}

func TestCORSConfigFinalizeDefaults(t *testing.T) {
	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if len(cfg.AllowedMethods) != 4 {
		t.Errorf("allowed_methods: got %d, want 4", len(cfg.AllowedMethods))
	}
	if len(cfg.AllowedHeaders) != 2 {
		t.Errorf("allowed_headers: got %d, want 2", len(cfg.AllowedHeaders))
	}
	if cfg.MaxAge != 3600 {
		t.Errorf("max_age: got %d, want 3600", cfg.MaxAge)
	}
	if len(cfg.Origins) != 0 {
		t.Errorf("origins: got %v, want none while disabled", cfg.Origins)
	}
}

func TestCORSConfigFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.com, http://b.com")
	t.Setenv("TEST_CORS_CREDS", "true")

	env := &middleware.CORSEnv{
		Enabled:          "TEST_CORS_ENABLED",
		Origins:          "TEST_CORS_ORIGINS",
		AllowCredentials: "TEST_CORS_CREDS",
	}

	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if !cfg.Enabled {
		t.Error("enabled should be true")
	}
	if len(cfg.Origins) != 2 {
		t.Fatalf("origins: got %d, want 2", len(cfg.Origins))
	}
	if cfg.Origins[0] != "http://a.com" || cfg.Origins[1] != "http://b.com" {
		t.Errorf("origins: got %v", cfg.Origins)
	}
	if !cfg.AllowCredentials {
		t.Error("allow_credentials should be true")
	}
}

func TestCORSConfigEnabledWithoutOrigins(t *testing.T) {
	cfg := middleware.CORSConfig{Enabled: true}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if len(cfg.Origins) != 1 || cfg.Origins[0] != middleware.WildcardOrigin {
		t.Errorf("origins: got %v, want [*]", cfg.Origins)
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Enabled:        false,
		Origins:        []string{"http://base.com"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}

	overlay := middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://overlay.com"},
		MaxAge:  7200,
	}

	base.Merge(&overlay)

	if !base.Enabled {
		t.Error("enabled should be true after merge")
	}
	if len(base.Origins) != 1 || base.Origins[0] != "http://overlay.com" {
		t.Errorf("origins: got %v", base.Origins)
	}
	if base.MaxAge != 7200 {
		t.Errorf("max_age: got %d, want 7200", base.MaxAge)
	}
}
