package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwear/cloudwear-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            3005,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret-at-least-16-chars!!",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
			RateLimit:  1000,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:  config.LogConfig{Level: "error"},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(testConfig(), logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestNew_WiresAllRoutes(t *testing.T) {
	srv := newTestServer(t)

	// Every route must resolve to a handler, not chi's 404/405.
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/metrics"},
		{http.MethodPost, "/auth/register"},
		{http.MethodPost, "/auth/login"},
		{http.MethodPost, "/auth/register-full"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/abc"},
		{http.MethodPatch, "/users/abc"},
		{http.MethodPost, "/biometricos"},
	}
	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		rr := httptest.NewRecorder()
		srv.Router().ServeHTTP(rr, req)

		if rr.Code == http.StatusNotFound && route.path != "/users/abc" {
			t.Errorf("%s %s not routed", route.method, route.path)
		}
		if rr.Code == http.StatusMethodNotAllowed {
			t.Errorf("%s %s returned 405", route.method, route.path)
		}
	}
}

func TestNew_RejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(cfg, logger); err == nil {
		t.Fatal("New() should fail with a short JWT secret")
	}
}

func TestHealthzThroughFullStack(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rr.Code)
	}
}
