package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/pantryplus/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, vendor_id, email, first_name, last_name, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (*model.User, error) {
	user := &model.User{}
	dest := []any{&user.ID, &user.VendorID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByVendorID はベンダーのユーザーIDで検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByVendorID(ctx context.Context, vendorID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE vendor_id = $1`, vendorID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by vendor ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, vendor_id, email, first_name, last_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.VendorID, user.Email, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert user %s: %w", user.VendorID, ErrConstraintViolation)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Upsert はvendor_idの競合時にプロフィール項目を上書きする。
// xmax = 0 は今回のINSERTで作成された行であることを示す。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, bool, error) {
	var isNew bool
	saved, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, vendor_id, email, first_name, last_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (vendor_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   first_name = EXCLUDED.first_name,
		   last_name = EXCLUDED.last_name,
		   updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns+`, (xmax = 0)`,
		user.ID, user.VendorID, user.Email, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt,
	), &isNew)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}
	return saved, isNew, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
