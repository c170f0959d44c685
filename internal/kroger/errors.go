package kroger

import "errors"

// 呼び出し側に返すセンチネルエラー。ベンダーのレスポンス詳細はログにのみ記録する。
var (
	// ErrUpstreamAuth はトークンエンドポイントでの失敗を表す。
	ErrUpstreamAuth = errors.New("kroger: token request failed")

	// ErrUpstreamProfile はプロフィール取得の失敗を表す。
	ErrUpstreamProfile = errors.New("kroger: profile request failed")

	// ErrUpstreamUnavailable は商品・店舗検索APIの失敗を表す。
	ErrUpstreamUnavailable = errors.New("kroger: catalog request failed")
)
