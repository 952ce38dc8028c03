package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/logging"
)

type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t, withCheck("database", fakeCheck{}))

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	components, _ := resp["components"].(map[string]any)
	if components["database"] != "ok" {
		t.Errorf("components = %v, want database ok", components)
	}
}

func TestHealthReportsFailingComponent(t *testing.T) {
	env := newTestEnv(t,
		withCheck("database", fakeCheck{}),
		withCheck("mqtt", fakeCheck{err: errors.New("broker unreachable")}),
	)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", resp["status"])
	}
	components, _ := resp["components"].(map[string]any)
	if components["mqtt"] != "unhealthy" || components["database"] != "ok" {
		t.Errorf("components = %v", components)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t, withAPIConfig(config.APIConfig{
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://panel.local"}},
	}))

	tests := []struct {
		origin string
		want   string
	}{
		{"http://panel.local", "http://panel.local"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			env.handler.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("ACAO = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestBodySizeLimit(t *testing.T) {
	env := newTestEnv(t)

	body := `{"email":"` + strings.Repeat("a", maxRequestBodySize) + `","password":"x"}`
	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/health", "", nil)

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "homepanel_http_requests_total") {
		t.Error("metrics output missing homepanel_http_requests_total")
	}
	if !strings.Contains(body, `route="/api/v1/health"`) {
		t.Error("request metric should be labelled with the route pattern")
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, withRateLimit(100, 2))
	body := loginRequest{Email: "nobody@example.com", Password: "whatever"}

	for i := range 2 {
		if w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("login %d status = %d, want 401", i, w.Code)
		}
	}
	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	expectError(t, w, http.StatusTooManyRequests, ErrCodeRateLimited)

	// The general limit is separate from the login limit.
	if w := env.do(t, http.MethodGet, "/api/v1/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	env := newTestEnv(t)
	full := Deps{
		Logger:   logging.Discard(),
		Devices:  env.srv.devices,
		Rooms:    env.srv.rooms,
		Users:    env.srv.users,
		Audit:    env.srv.audit,
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret}},
	}

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"no logger", func(d *Deps) { d.Logger = nil }},
		{"no devices", func(d *Deps) { d.Devices = nil }},
		{"no users", func(d *Deps) { d.Users = nil }},
		{"no secret", func(d *Deps) { d.Security.JWT.Secret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}

	srv, err := New(full)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if srv.Hub() == nil {
		t.Error("New() should create a hub when none is given")
	}
}

func TestServer_StartAndClose(t *testing.T) {
	const port = 19180
	env := newTestEnv(t, withAPIConfig(config.APIConfig{
		Host:     "127.0.0.1",
		Port:     port,
		Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
	}))
	srv := env.srv

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := srv.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := http.Get("http://" + addr + "/api/v1/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}
