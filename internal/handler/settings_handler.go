package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/model"
)

// tokenPreviewLength はテスト結果に含めるトークンの先頭文字数。
const tokenPreviewLength = 10

// CredentialsVerifier はKrogerのアプリ認証情報を検証する。
type CredentialsVerifier interface {
	AppToken(ctx context.Context) (string, error)
	VerifyCredentials(ctx context.Context, clientID, clientSecret string) (string, error)
}

// CredentialsStore は次回起動時に読み込まれる認証情報の保存先。
type CredentialsStore interface {
	SaveKrogerCredentials(clientID, clientSecret string) error
}

// SettingsHandler はKroger API認証情報の設定ハンドラー。
// 実行中の設定は変更せず、保存した認証情報は再起動後に反映される。
type SettingsHandler struct {
	verifier CredentialsVerifier
	store    CredentialsStore
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(verifier CredentialsVerifier, store CredentialsStore) *SettingsHandler {
	return &SettingsHandler{verifier: verifier, store: store}
}

type saveCredentialsRequest struct {
	ClientID     string `json:"clientId" validate:"required"`
	ClientSecret string `json:"clientSecret" validate:"required"`
}

// SaveCredentials は認証情報をKrogerで検証してから保存する。
// POST /api/settings/kroger
func (h *SettingsHandler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var req saveCredentialsRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if _, err := h.verifier.VerifyCredentials(r.Context(), req.ClientID, req.ClientSecret); err != nil {
		if errors.Is(err, kroger.ErrUpstreamAuth) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Krogerが認証情報を受け付けませんでした"))
			return
		}
		handleServiceError(w, err)
		return
	}

	if err := h.store.SaveKrogerCredentials(req.ClientID, req.ClientSecret); err != nil {
		slog.Error("failed to save kroger credentials", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	slog.Info("kroger credentials saved; restart required to apply")
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Kroger API credentials saved. Restart the server to apply them.",
	})
}

// TestConnection は現在の認証情報でアプリトークンを取得できるか確認する。
// GET /api/settings/kroger/test
func (h *SettingsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	token, err := h.verifier.AppToken(r.Context())
	if err != nil {
		slog.Warn("kroger connection test failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Failed to connect to Kroger API. Check your credentials.",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Successfully connected to Kroger API",
		"token_preview": tokenPreview(token),
	})
}

func tokenPreview(token string) string {
	if len(token) > tokenPreviewLength {
		token = token[:tokenPreviewLength]
	}
	return token + "..."
}
