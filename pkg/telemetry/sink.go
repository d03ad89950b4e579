package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnauthorized indicates the dashboard rejected the bearer token.
var ErrUnauthorized = errors.New("dashboard rejected credentials")

// Sink delivers a single flow record.
type Sink interface {
	Send(ctx context.Context, flow Flow) error
}

// HTTPSink posts flows to a dashboard API, logging in first when
// credentials are configured and caching the access token until the
// dashboard rejects it.
type HTTPSink struct {
	client   *http.Client
	baseURL  string
	username string
	password string

	mu    sync.Mutex
	token string
}

// NewHTTPSink creates a sink for cfg. A nil client uses a default client
// whose transport is instrumented with OpenTelemetry.
func NewHTTPSink(cfg *Config, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.TimeoutDuration(),
		}
	}
	return &HTTPSink{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Send posts flow to /api/flow. A 401 clears the cached token so the next
// flow triggers a fresh login.
func (s *HTTPSink) Send(ctx context.Context, flow Flow) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.post(ctx, "/api/flow", token, flow)
	if err != nil {
		return fmt.Errorf("send flow: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		s.clearToken()
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send flow: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSink) accessToken(ctx context.Context) (string, error) {
	if s.username == "" || s.password == "" {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	resp, err := s.post(ctx, "/api/login", "", loginRequest{
		Username: s.username,
		Password: s.password,
	})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("login: decode response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("login: empty access token")
	}

	s.token = body.AccessToken
	return s.token, nil
}

func (s *HTTPSink) clearToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *HTTPSink) post(ctx context.Context, path, token string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.client.Do(req)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
