package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/pantryplus/internal/model"
)

// PostgresLocationRepo はPostgreSQLを使用した選択店舗リポジトリ。
type PostgresLocationRepo struct {
	db *sql.DB
}

// NewPostgresLocationRepo はPostgresLocationRepoを生成する。
func NewPostgresLocationRepo(db *sql.DB) *PostgresLocationRepo {
	return &PostgresLocationRepo{db: db}
}

// Replace はユーザーの選択店舗を1文で置き換える。
func (r *PostgresLocationRepo) Replace(ctx context.Context, location *model.Location) error {
	address := []byte(location.Address)
	if len(address) == 0 {
		address = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, user_id, vendor_location_id, name, address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   vendor_location_id = EXCLUDED.vendor_location_id,
		   name = EXCLUDED.name,
		   address = EXCLUDED.address,
		   updated_at = EXCLUDED.updated_at`,
		location.ID, location.UserID, location.VendorLocationID, location.Name, address, location.CreatedAt, location.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to replace location: %w", err)
	}
	return nil
}

// FindByUserID はユーザーの選択店舗を返す。未設定の場合はnilを返す。
func (r *PostgresLocationRepo) FindByUserID(ctx context.Context, userID string) (*model.Location, error) {
	location := &model.Location{}
	var address []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, vendor_location_id, name, address, created_at, updated_at
		 FROM locations WHERE user_id = $1`,
		userID,
	).Scan(&location.ID, &location.UserID, &location.VendorLocationID, &location.Name, &address, &location.CreatedAt, &location.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find location: %w", err)
	}
	location.Address = address
	return location, nil
}

// compile-time interface check
var _ LocationRepository = (*PostgresLocationRepo)(nil)
