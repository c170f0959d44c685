package app

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/pantryplus/internal/config"
	"github.com/hitoshi/pantryplus/internal/database"
	"github.com/hitoshi/pantryplus/internal/middleware"
)

// 接続先のDBが存在しないため、serveとworkerはPing失敗で即座にエラーを返す。
func TestRun_DatabaseUnreachable(t *testing.T) {
	for _, args := range [][]string{{"serve"}, {"worker"}, {}} {
		t.Run(strings.Join(append([]string{"run"}, args...), " "), func(t *testing.T) {
			setTestEnv(t)

			var buf bytes.Buffer
			err := Run(&buf, args)
			if err == nil {
				t.Fatal("expected database connection error")
			}
			if !strings.Contains(err.Error(), "database") {
				t.Errorf("error = %v, want database error", err)
			}
		})
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KROGER_CLIENT_ID", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRunHealthcheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	_, port, err := net.SplitHostPort(strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	if err := runHealthcheck(port); err != nil {
		t.Errorf("runHealthcheck() error = %v", err)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL:        testDatabaseURL,
		KrogerClientID:     "test-client-id",
		KrogerClientSecret: "test-client-secret",
		KrogerAPIURL:       "https://api.kroger.test/v1",
		KrogerRedirectURL:  "http://localhost:8080/auth/callback",
		SessionSecret:      "test-session-secret-32bytes-long!",
		SessionMaxAge:      3600,
		RateLimitGeneral:   120,
		RateLimitAuth:      20,
		SettingsEnvFile:    "",
		ServerPort:         "0",
		BaseURL:            "http://localhost:8080",
		CORSAllowedOrigin:  "http://localhost:3000",
	}
}

// newServer のワイヤリングをDBなしで検証する。
func TestNewServer_Wiring(t *testing.T) {
	db, err := database.Open(testDatabaseURL)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close()

	srv := newServer(testConfig(), db)
	t.Cleanup(srv.close)

	tests := []struct {
		path       string
		wantStatus int
		contains   string
	}{
		{"/", http.StatusOK, "Welcome to Pantry Plus API"},
		{"/api/debug", http.StatusOK, `"redirectUri":"http://localhost:8080/auth/callback"`},
		{"/api/auth/kroger/authorize", http.StatusOK, "https://api.kroger.test/v1/connect/oauth2/authorize"},
		{"/api/cart/items?krogerId=k1", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"/health", http.StatusServiceUnavailable, "unavailable"},
		{"/metrics", http.StatusOK, "pantryplus_http_status_total"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "garbage"})
		srv.handler.ServeHTTP(w, req)

		if w.Code != tt.wantStatus {
			t.Errorf("GET %s status = %d, want %d (body: %s)", tt.path, w.Code, tt.wantStatus, w.Body.String())
			continue
		}
		if !strings.Contains(w.Body.String(), tt.contains) {
			t.Errorf("GET %s body does not contain %q", tt.path, tt.contains)
		}
	}
}
