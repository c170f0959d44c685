// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pantryplus/internal/auth"
	"github.com/hitoshi/pantryplus/internal/middleware"
	"github.com/hitoshi/pantryplus/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	AuthorizationURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.CallbackResult, error)
	Validate(ctx context.Context, user *model.User) (*model.User, error)
	Profile(ctx context.Context, user *model.User) (*model.User, error)
	Logout(ctx context.Context, sessionID, userID string) error
}

// OwnerResolver はリクエストで指定されたkrogerIdをログイン中のユーザーに解決する。
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, sessionUserID, krogerID string) (*model.User, error)
}

// SessionTokenSigner はセッションを署名付きトークンに変換する。
type SessionTokenSigner interface {
	Sign(session *model.Session) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookie        middleware.SessionCookieConfig
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はKroger OAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	owners  OwnerResolver
	signer  SessionTokenSigner
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, owners OwnerResolver, signer SessionTokenSigner, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		owners:  owners,
		signer:  signer,
		config:  config,
	}
}

// userResponse はユーザー情報のAPIレスポンス。idはKrogerのユーザーID。
type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.VendorID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

type callbackRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state"`
}

type krogerIDRequest struct {
	KrogerID string `json:"krogerId"`
}

// Authorize は認可URLを生成し、stateをCookieに保存する。
// GET /api/auth/kroger/authorize
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	h.setStateCookie(w, state, oauthStateMaxAge)

	writeJSON(w, http.StatusOK, map[string]string{
		"authorizationUrl": h.service.AuthorizationURL(state),
		"state":            state,
	})
}

// Callback は認可コードを交換し、ログインセッションを確立する。
// POST /api/auth/kroger/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. リクエストの検証
	var req callbackRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	// 2. stateの検証
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || req.State == "" ||
		subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(req.State)) != 1 {
		slog.Warn("oauth state mismatch", slog.Bool("cookie_present", err == nil))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidStateError())
		return
	}
	h.setStateCookie(w, "", -1)

	// 3. 認証処理
	result, err := h.service.HandleCallback(r.Context(), req.Code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	// 4. 署名付きセッションCookieを設定
	token, err := h.signer.Sign(result.Session)
	if err != nil {
		slog.Error("failed to sign session", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}
	middleware.SetSessionCookie(w, h.config.Cookie, token, h.config.SessionMaxAge)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"isNew":   result.IsNew,
		"user":    toUserResponse(result.User),
	})
}

// Profile はKrogerから最新のプロフィールを取得して返す。
// GET /api/auth/kroger/profile?krogerId=
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owners.ResolveOwner(r.Context(), sessionUserID(r), r.URL.Query().Get("krogerId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.service.Profile(r.Context(), owner)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// Validate は保存済みトークンが有効か確認する。
// 無効な場合は401を返し、セッションCookieを削除する。
// POST /api/auth/kroger/validate
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req krogerIDRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	owner, err := h.owners.ResolveOwner(r.Context(), sessionUserID(r), req.KrogerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.service.Validate(r.Context(), owner)
	if errors.Is(err, auth.ErrSessionExpired) {
		if logoutErr := h.service.Logout(r.Context(), middleware.SessionIDFromContext(r.Context()), ""); logoutErr != nil {
			slog.Warn("failed to delete expired session", slog.String("error", logoutErr.Error()))
		}
		middleware.ClearSessionCookie(w, h.config.Cookie)
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserResponse(user),
	})
}

// Logout はトークンとセッションを削除する。
// krogerIdがログイン中のユーザーと一致する場合のみトークンを削除する。
// 他人のkrogerIdや未登録のkrogerIdでもセッションCookieは削除し、成功を返す。
// POST /api/auth/kroger/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req krogerIDRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	owner, err := h.owners.ResolveOwner(r.Context(), sessionUserID(r), req.KrogerID)
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidation:
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	case err != nil && apiErr == nil:
		handleServiceError(w, err)
		return
	}

	userID := ""
	if owner != nil {
		userID = owner.ID
	}
	if err := h.service.Logout(r.Context(), middleware.SessionIDFromContext(r.Context()), userID); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	middleware.ClearSessionCookie(w, h.config.Cookie)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		Domain:   h.config.Cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
