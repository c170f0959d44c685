package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeStatusRecorder struct {
	statuses []int
}

func (f *fakeStatusRecorder) RecordHTTPStatus(statusCode int) {
	f.statuses = append(f.statuses, statusCode)
}

// serveLogged はハンドラーをロギングミドルウェア越しに実行し、ログ行をデコードして返す。
func serveLogged(t *testing.T, req *http.Request, recorder StatusRecorder, h http.HandlerFunc) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	NewLoggingMiddleware(logger, recorder)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	entry := serveLogged(t, req, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/products" {
		t.Errorf("path = %v, want /api/products", entry["path"])
	}
	if status, _ := entry["status"].(float64); status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry["duration_ms"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Errorf("user_id should be omitted for anonymous request, got %v", entry["user_id"])
	}
}

// TestLoggingMiddleware_IncludesUserID はユーザーIDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/cart/items", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-123"))

	entry := serveLogged(t, req, nil, func(w http.ResponseWriter, r *http.Request) {})

	if entry["user_id"] != "user-123" {
		t.Errorf("user_id = %v, want user-123", entry["user_id"])
	}
}

// TestLoggingMiddleware_LevelAndStatus はステータスコードとログレベルの対応を検証する。
func TestLoggingMiddleware_LevelAndStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		wantLevel  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusForbidden, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			rec := &fakeStatusRecorder{}
			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			entry := serveLogged(t, req, rec, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			if status := int(entry["status"].(float64)); status != tt.statusCode {
				t.Errorf("status = %d, want %d", status, tt.statusCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if len(rec.statuses) != 1 || rec.statuses[0] != tt.statusCode {
				t.Errorf("recorded = %v, want [%d]", rec.statuses, tt.statusCode)
			}
		})
	}
}

// TestLoggingMiddleware_BodyWriteCapture はWriteHeaderなしの書き込みが200として記録されることを検証する。
func TestLoggingMiddleware_BodyWriteCapture(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	entry := serveLogged(t, req, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})

	if status := int(entry["status"].(float64)); status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
}
