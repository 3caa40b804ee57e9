package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
	"github.com/starford/raido/internal/testutil"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func TestAuthConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         AuthConfig
		wantErr     string
		wantMode    string
		wantEnabled bool
	}{
		{name: "disabled", cfg: AuthConfig{Mode: "disabled"}, wantMode: AuthModeDisabled},
		{name: "empty mode defaults to disabled", cfg: AuthConfig{}, wantMode: AuthModeDisabled},
		{name: "token", cfg: AuthConfig{Mode: "token", Token: "s3cret"}, wantMode: AuthModeToken, wantEnabled: true},
		{name: "token mode without token", cfg: AuthConfig{Mode: "token"}, wantErr: "token is empty"},
		{name: "unknown mode", cfg: AuthConfig{Mode: "magic", Token: "x"}, wantErr: "valid value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.cfg.Mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", tt.cfg.Mode, tt.wantMode)
			}
			if tt.cfg.AuthEnabled() != tt.wantEnabled {
				t.Errorf("AuthEnabled = %v, want %v", tt.cfg.AuthEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestConfig_AuthErrorSurfacesFromRoot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModeToken
	if err := cfg.Validate(); err == nil {
		t.Fatal("root Validate should report the auth error")
	}
}

// The token is read from the environment through the YAML file and must
// reach the API's bearer check.
func TestConfig_TokenFromEnvGuardsAPI(t *testing.T) {
	t.Setenv("RAIDO_AUTH_TOKEN", "from-env")
	cfg := NewDefaultConfig()
	yml := "auth:\n  mode: token\n  token: ${RAIDO_AUTH_TOKEN}\n"
	if err := pkgconfig.Decode([]byte(yml), cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Auth.Token != "from-env" || !cfg.Auth.AuthEnabled() {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	if cfg.SQLite.Path != "./raido.db" {
		t.Errorf("defaults lost: sqlite path = %q", cfg.SQLite.Path)
	}

	store := testutil.TestStore(t)
	r := newRouter(cfg, resource.New(store, schema.Default()), store, nil, nil)

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"Bearer from-env", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("Authorization %q: status = %d, want %d", tc.header, w.Code, tc.want)
		}
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestQueryConfig_DefaultAboveMax(t *testing.T) {
	cfg := QueryConfig{DefaultLimit: 50, MaxLimit: 20}
	if err := cfg.Validate(); err == nil {
		t.Fatal("default limit above max should fail")
	}
}

func TestMetricsConfig_Path(t *testing.T) {
	cases := []struct {
		cfg     MetricsConfig
		wantErr bool
	}{
		{MetricsConfig{Enabled: true, Path: "/metrics"}, false},
		{MetricsConfig{Enabled: true, Path: ""}, true},
		{MetricsConfig{Enabled: true, Path: "metrics"}, true},
		{MetricsConfig{Enabled: false, Path: ""}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%+v: err = %v, wantErr %v", tc.cfg, err, tc.wantErr)
		}
	}
}
