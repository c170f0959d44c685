// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/pantryplus/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByVendorID はベンダーのユーザーIDで検索する。見つからない場合はnilを返す。
	FindByVendorID(ctx context.Context, vendorID string) (*model.User, error)

	// Create はユーザーを作成する。vendor_idが重複する場合はErrConstraintViolationを返す。
	Create(ctx context.Context, user *model.User) error

	// Upsert はvendor_idをキーにユーザーを作成または更新する。
	// 既存行がある場合はプロフィール項目のみを上書きし、isNew=falseを返す。
	Upsert(ctx context.Context, user *model.User) (saved *model.User, isNew bool, err error)
}

// TokenRepository はベンダーOAuthトークンの永続化インターフェース。
// ユーザーごとに1行のみを保持する。
type TokenRepository interface {
	// Replace はユーザーのトークンを置き換える。
	Replace(ctx context.Context, token *model.Token) error

	// FindValidByUserID は有効期限内のトークンを返す。
	// トークンが存在しない場合と期限切れの場合はどちらもnilを返す。
	FindValidByUserID(ctx context.Context, userID string) (*model.Token, error)

	// DeleteByUserID はユーザーのトークンを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// LocationRepository は選択店舗の永続化インターフェース。
type LocationRepository interface {
	// Replace はユーザーの選択店舗を置き換える。
	Replace(ctx context.Context, location *model.Location) error

	// FindByUserID はユーザーの選択店舗を返す。未設定の場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Location, error)
}

// CartRepository はカートの永続化インターフェース。
type CartRepository interface {
	// AddItem は商品行とカート行を同一トランザクションで作成する。
	AddItem(ctx context.Context, product *model.Product, item *model.CartItem) error

	// ListJoinedByUserID はカート行を商品とLEFT JOINして追加順に返す。
	ListJoinedByUserID(ctx context.Context, userID string) ([]model.CartRow, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
