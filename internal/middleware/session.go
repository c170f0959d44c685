// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pantryplus/internal/model"
)

// SessionCookieName は署名付きセッショントークンを保持するCookieの名前。
const SessionCookieName = "pantry_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにローカルユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
	sessionIDContextKey = contextKey("session_id")
)

// SessionTokenParser は署名付きセッショントークンからセッションIDを取り出す。
// auth.SessionSigner が実装する。
type SessionTokenParser interface {
	Parse(token string) (string, error)
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionCookieConfig はセッションCookieの属性。
type SessionCookieConfig struct {
	Secure bool
	Domain string
}

// SetSessionCookie は署名済みトークンをHttpOnly Cookieとして設定する。
func SetSessionCookie(w http.ResponseWriter, config SessionCookieConfig, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, config SessionCookieConfig) {
	SetSessionCookie(w, config, "", -1)
}

// NewSessionLoader はCookieのセッショントークンを検証し、
// 有効な場合のみユーザーIDとセッションIDをリクエストコンテキストに注入する。
// 無効・未設定の場合もリクエストは拒否せずにそのまま次へ渡す。
// 認証必須のルートでは NewRequireSession と組み合わせる。
func NewSessionLoader(parser SessionTokenParser, finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			// 2. 署名と有効期限を検証
			sessionID, err := parser.Parse(cookie.Value)
			if err != nil {
				slog.Debug("rejected session token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			// 3. サーバー側のセッションを検索
			session, err := finder.FindByID(r.Context(), sessionID)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			// 4. 認証済みユーザーIDをコンテキストに注入
			ctx := ContextWithSession(r.Context(), session.UserID, session.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireSession はセッションが確立されていないリクエストに401を返すミドルウェアを返す。
// NewSessionLoader の後段に置く。
func NewRequireSession() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := UserIDFromContext(r.Context()); err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションが確立されたリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
// セッションがない場合は空文字を返す。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSession はコンテキストにユーザーIDとセッションIDを注入する。
func ContextWithSession(ctx context.Context, userID, sessionID string) context.Context {
	ctx = ContextWithUserID(ctx, userID)
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
