package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pantryplus/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// AddItem は商品行とそれを参照するカート行を同一トランザクションで作成する。
// 既存の商品行は再利用しない。
func (r *PostgresCartRepo) AddItem(ctx context.Context, product *model.Product, item *model.CartItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	a := product.Aisle
	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (id, vendor_product_id, name,
		   aisle_bay_number, aisle_description, aisle_number, aisle_number_of_facings,
		   aisle_side, aisle_shelf_number, aisle_shelf_position,
		   price, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		product.ID, product.VendorProductID, product.Name,
		a.BayNumber, a.Description, a.Number, a.NumberOfFacings,
		a.Side, a.ShelfNumber, a.ShelfPositionInBay,
		product.Price, product.ImageURL, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.UserID, product.ID, item.Quantity, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cart item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	item.ProductID = product.ID
	return nil
}

// ListJoinedByUserID はカート行を商品とLEFT JOINして返す。
// 削除済み商品を参照する行は Product が nil になる。
func (r *PostgresCartRepo) ListJoinedByUserID(ctx context.Context, userID string) ([]model.CartRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		        p.id, p.vendor_product_id, p.name,
		        p.aisle_bay_number, p.aisle_description, p.aisle_number, p.aisle_number_of_facings,
		        p.aisle_side, p.aisle_shelf_number, p.aisle_shelf_position,
		        p.price, p.image_url, p.created_at, p.updated_at
		 FROM cart_items c
		 LEFT JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at, c.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	var result []model.CartRow
	for rows.Next() {
		var (
			row       model.CartRow
			productID sql.NullString
			p         nullableProduct
		)
		if err := rows.Scan(
			&row.Item.ID, &row.Item.UserID, &productID, &row.Item.Quantity, &row.Item.CreatedAt, &row.Item.UpdatedAt,
			&p.id, &p.vendorProductID, &p.name,
			&p.bayNumber, &p.description, &p.number, &p.numberOfFacings,
			&p.side, &p.shelfNumber, &p.shelfPosition,
			&p.price, &p.imageURL, &p.createdAt, &p.updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		row.Item.ProductID = productID.String
		row.Product = p.toModel()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}

	return result, nil
}

// nullableProduct はLEFT JOINで欠落しうる商品カラムのスキャン先。
type nullableProduct struct {
	id, vendorProductID, name                       sql.NullString
	bayNumber, description, number, numberOfFacings sql.NullString
	side, shelfNumber, shelfPosition                sql.NullString
	price                                           sql.NullFloat64
	imageURL                                        sql.NullString
	createdAt, updatedAt                            sql.NullTime
}

func (p nullableProduct) toModel() *model.Product {
	if !p.id.Valid {
		return nil
	}
	return &model.Product{
		ID:              p.id.String,
		VendorProductID: p.vendorProductID.String,
		Name:            p.name.String,
		Aisle: model.Aisle{
			BayNumber:          p.bayNumber.String,
			Description:        p.description.String,
			Number:             p.number.String,
			NumberOfFacings:    p.numberOfFacings.String,
			Side:               p.side.String,
			ShelfNumber:        p.shelfNumber.String,
			ShelfPositionInBay: p.shelfPosition.String,
		},
		Price:     p.price.Float64,
		ImageURL:  p.imageURL.String,
		CreatedAt: p.createdAt.Time,
		UpdatedAt: p.updatedAt.Time,
	}
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
