package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/pantryplus/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したトークンリポジトリ。
// tokens.user_id の一意制約により1ユーザー1行を保証する。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// Replace はユーザーのトークンを1文で置き換える。
// 既存行のIDとcreated_atは維持される。
func (r *PostgresTokenRepo) Replace(ctx context.Context, token *model.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (id, user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   expires_at = EXCLUDED.expires_at,
		   updated_at = EXCLUDED.updated_at`,
		token.ID, token.UserID, token.AccessToken, token.RefreshToken, token.ExpiresAt, token.CreatedAt, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to replace token: %w", err)
	}
	return nil
}

// FindValidByUserID は有効期限内のトークンを返す。
func (r *PostgresTokenRepo) FindValidByUserID(ctx context.Context, userID string) (*model.Token, error) {
	token := &model.Token{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, access_token, refresh_token, expires_at, created_at, updated_at
		 FROM tokens
		 WHERE user_id = $1 AND expires_at > now()`,
		userID,
	).Scan(&token.ID, &token.UserID, &token.AccessToken, &token.RefreshToken, &token.ExpiresAt, &token.CreatedAt, &token.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return token, nil
}

// DeleteByUserID はユーザーのトークンを削除する。行がなくてもエラーにしない。
func (r *PostgresTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
