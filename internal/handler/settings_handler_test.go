package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/model"
)

func TestSettingsHandler_SaveCredentials_VerifiesThenStores(t *testing.T) {
	var verified [2]string
	creds := &mockCredentials{
		verifyFn: func(ctx context.Context, clientID, clientSecret string) (string, error) {
			verified = [2]string{clientID, clientSecret}
			return "tok", nil
		},
	}
	store := &mockCredentialsStore{}
	h := NewSettingsHandler(creds, store)

	w := httptest.NewRecorder()
	h.SaveCredentials(w, jsonRequest(http.MethodPost, "/api/settings/kroger", `{"clientId":"id-1","clientSecret":"secret-1"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
	}
	if verified != [2]string{"id-1", "secret-1"} {
		t.Errorf("verified = %v", verified)
	}
	if len(store.saved) != 1 || store.saved[0] != [2]string{"id-1", "secret-1"} {
		t.Errorf("saved = %v", store.saved)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if !strings.Contains(body["message"], "Restart") {
		t.Errorf("message = %q, want restart notice", body["message"])
	}
}

func TestSettingsHandler_SaveCredentials_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		verifyErr  error
		saveErr    error
		wantStatus int
		wantCode   string
		wantSaved  int
	}{
		{"clientId未指定", `{"clientSecret":"s"}`, nil, nil, http.StatusBadRequest, model.ErrCodeValidation, 0},
		{"clientSecret未指定", `{"clientId":"c"}`, nil, nil, http.StatusBadRequest, model.ErrCodeValidation, 0},
		{"Krogerが拒否", `{"clientId":"c","clientSecret":"s"}`, fmt.Errorf("%w: verify", kroger.ErrUpstreamAuth), nil, http.StatusBadRequest, model.ErrCodeValidation, 0},
		{"保存失敗", `{"clientId":"c","clientSecret":"s"}`, nil, errors.New("read-only file system"), http.StatusInternalServerError, model.ErrCodeInternal, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := &mockCredentials{
				verifyFn: func(ctx context.Context, clientID, clientSecret string) (string, error) {
					return "tok", tt.verifyErr
				},
			}
			store := &mockCredentialsStore{
				saveFn: func(clientID, clientSecret string) error { return tt.saveErr },
			}
			h := NewSettingsHandler(creds, store)

			w := httptest.NewRecorder()
			h.SaveCredentials(w, jsonRequest(http.MethodPost, "/api/settings/kroger", tt.body))

			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
			if len(store.saved) != tt.wantSaved {
				t.Errorf("saved = %d, want %d", len(store.saved), tt.wantSaved)
			}
		})
	}
}

func TestSettingsHandler_TestConnection(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		h := NewSettingsHandler(&mockCredentials{}, &mockCredentialsStore{})

		w := httptest.NewRecorder()
		h.TestConnection(w, httptest.NewRequest(http.MethodGet, "/api/settings/kroger/test", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body struct {
			Success      bool   `json:"success"`
			Message      string `json:"message"`
			TokenPreview string `json:"token_preview"`
		}
		decodeBody(t, w, &body)
		if !body.Success {
			t.Error("success = false, want true")
		}
		if body.TokenPreview != "app-token-..." {
			t.Errorf("token_preview = %q, want %q", body.TokenPreview, "app-token-...")
		}
	})

	t.Run("失敗", func(t *testing.T) {
		h := NewSettingsHandler(&mockCredentials{
			appTokenFn: func(ctx context.Context) (string, error) {
				return "", fmt.Errorf("%w: invalid_client", kroger.ErrUpstreamAuth)
			},
		}, &mockCredentialsStore{})

		w := httptest.NewRecorder()
		h.TestConnection(w, httptest.NewRequest(http.MethodGet, "/api/settings/kroger/test", nil))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if strings.Contains(w.Body.String(), "invalid_client") {
			t.Error("vendor error must not leak into the response")
		}
	})
}

func TestTokenPreview(t *testing.T) {
	if got := tokenPreview("short"); got != "short..." {
		t.Errorf("tokenPreview(short) = %q", got)
	}
	if got := tokenPreview("0123456789abcdef"); got != "0123456789..." {
		t.Errorf("tokenPreview(long) = %q", got)
	}
}
