// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, vendor, cart, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeSessionExpired      = "SESSION_EXPIRED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeLocationNotFound    = "LOCATION_NOT_FOUND"
	ErrCodeUpstreamAuth        = "UPSTREAM_AUTH_ERROR"
	ErrCodeUpstreamProfile     = "UPSTREAM_PROFILE_ERROR"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrCodeCSRFTokenInvalid    = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewValidationError はリクエスト項目の不足・不正を表すエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未ログイン状態のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "Krogerアカウントでログインしてください。",
	}
}

// NewSessionExpiredError は保存済みトークンが無効・期限切れのエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "Krogerアカウントで再度ログインしてください。",
	}
}

// NewForbiddenError はログイン中のユーザー以外のデータを操作しようとした場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このユーザーのデータにはアクセスできません。",
		Category: "auth",
		Action:   "ログイン中のアカウントを確認してください。",
	}
}

// NewInvalidStateError はOAuthのstate不一致エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "認証リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "最初からログインをやり直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewLocationNotFoundError は店舗が未設定の場合のエラーを生成する。
func NewLocationNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeLocationNotFound,
		Message:  "店舗が設定されていません。",
		Category: "validation",
		Action:   "店舗を検索して選択してください。",
	}
}

// NewUpstreamAuthError はベンダーのトークンエンドポイントの失敗を表すエラーを生成する。
// ベンダーのエラー詳細はログのみに記録し、ここには含めない。
func NewUpstreamAuthError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamAuth,
		Message:  "Krogerでの認証に失敗しました。",
		Category: "vendor",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// NewUpstreamProfileError はベンダーのプロフィール取得失敗を表すエラーを生成する。
func NewUpstreamProfileError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamProfile,
		Message:  "Krogerからユーザー情報を取得できませんでした。",
		Category: "vendor",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamUnavailableError はカタログ・店舗検索APIの失敗を表すエラーを生成する。
func NewUpstreamUnavailableError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("Kroger APIから%sを取得できませんでした。", what),
		Category: "vendor",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewConstraintViolationError は一意制約違反のエラーを生成する。
// 同時ログインの競合などで発生し、自動リトライはしない。
func NewConstraintViolationError() *APIError {
	return &APIError{
		Code:     ErrCodeConstraintViolation,
		Message:  "データが競合したため保存できませんでした。",
		Category: "system",
		Action:   "もう一度お試しください。",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
