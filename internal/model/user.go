// Package model はドメインモデルを定義する。
package model

import "time"

// User はベンダー（Kroger）アカウントと紐付いたローカルユーザーを表す。
// VendorID はベンダー側のユーザーIDで、一意制約を持つ。
type User struct {
	ID        string
	VendorID  string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Token はユーザーごとに1行だけ保持されるベンダーのOAuthトークン。
// ExpiresAt を過ぎたトークンは読み取り時に存在しないものとして扱う。
type Token struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsExpired は指定時刻の時点でトークンが期限切れかどうかを返す。
func (t *Token) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Session はユーザーのログインセッションを表す。
// 署名付きCookieにはIDのみが格納され、ユーザーの特定はサーバー側で行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
