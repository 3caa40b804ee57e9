package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/raido/internal/metrics"
	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
	"github.com/starford/raido/internal/testutil"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestNewRouter_Health(t *testing.T) {
	store := testutil.TestStore(t)
	cfg := NewDefaultConfig()
	engine := resource.New(store, schema.Default())
	r := newRouter(cfg, engine, store, nil, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestNewRouter_ReadyFailsWhenStoreDown(t *testing.T) {
	cfg := NewDefaultConfig()
	engine := resource.New(testutil.TestStore(t), schema.Default())
	r := newRouter(cfg, engine, failingPinger{}, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "unavailable" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestNewRouter_MetricsAndAPI(t *testing.T) {
	store := testutil.TestStore(t)
	cfg := NewDefaultConfig()
	m := metrics.New()
	engine := resource.New(store, schema.Default())
	r := newRouter(cfg, engine, store, nil, m)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list users: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "raido_requests_total") {
		t.Error("metrics output should include raido_requests_total")
	}
}

func TestNewRouter_AuthProtectsAPI(t *testing.T) {
	store := testutil.TestStore(t)
	cfg := NewDefaultConfig()
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "secret"}
	r := newRouter(cfg, resource.New(store, schema.Default()), store, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/kinds", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	// Health stays public.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", w.Code)
	}
}

func TestNewLogger_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	logger, level := newLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %s", buf.String())
	}

	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("debug should be logged after level change: %s", buf.String())
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("err = %v, want errConfigRequired", err)
	}
}
