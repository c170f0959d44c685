// Package security はクライアント入力のサニタイズと検証を提供する。
//
// カートに追加される商品情報はクライアントから送られるため、
// 保存前にマークアップを除去し、画像URLを検証する。
package security

import (
	"errors"
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrInvalidImageURL は画像URLが絶対http(s)URLでない場合のエラー。
var ErrInvalidImageURL = errors.New("image url must be an absolute http or https url")

// TextSanitizer はプレーンテキスト項目のサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// SanitizeText はHTMLタグを除去したプレーンテキストを返す。
	// 前後の空白は除去される。同一入力に対して常に同一出力を返す。
	SanitizeText(raw string) string

	// ValidateImageURL は画像URLが絶対http(s)URLであることを検証する。空文字列は許可する。
	ValidateImageURL(raw string) error
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーは並行利用に安全。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はすべてのタグを除去するStrictPolicyでTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはテキストをエスケープして返すため、保存用に元の文字へ戻す。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// ValidateImageURL は画像URLが絶対http(s)URLであることを検証する。
func (s *textSanitizer) ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidImageURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidImageURL
	}
	return nil
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
