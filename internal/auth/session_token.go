package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/pantryplus/internal/model"
)

// ErrInvalidSessionToken はセッションCookieの署名・有効期限・形式が不正な場合のエラー。
var ErrInvalidSessionToken = errors.New("auth: invalid session token")

// SessionSigner はセッションIDをHS256署名付きJWTとしてCookieに格納する。
// JWTにはセッションIDと有効期限のみを含め、ユーザーの特定はサーバー側で行う。
type SessionSigner struct {
	secret []byte
	now    func() time.Time
}

// NewSessionSigner はSessionSignerを生成する。
func NewSessionSigner(secret string) *SessionSigner {
	return &SessionSigner{secret: []byte(secret), now: time.Now}
}

// Sign はセッションを署名済みトークンに変換する。
func (s *SessionSigner) Sign(session *model.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(s.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse は署名済みトークンを検証し、セッションIDを返す。
func (s *SessionSigner) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidSessionToken)
	}
	return claims.ID, nil
}
