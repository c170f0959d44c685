package model

import "time"

// Aisle は商品の売り場位置情報。ベンダーAPIのaisleLocations[0]に相当する。
type Aisle struct {
	BayNumber          string
	Description        string
	Number             string
	NumberOfFacings    string
	Side               string
	ShelfNumber        string
	ShelfPositionInBay string
}

// ProductSnapshot はカート追加時にクライアントから送られる商品情報。
type ProductSnapshot struct {
	VendorProductID string
	Name            string
	Aisle           Aisle
	Price           float64
	ImageURL        string
}

// Product はカート追加のたびに作成される商品キャッシュ行。
// VendorProductID に一意制約はなく、同じ商品を追加すると行が重複する。
type Product struct {
	ID              string
	VendorProductID string
	Name            string
	Aisle           Aisle
	Price           float64
	ImageURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CartItem は1回のカート追加操作を表す。
type CartItem struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartRow は cart_items と products をLEFT JOINした1行。
// 参照先の商品が存在しない場合 Product は nil になる。
type CartRow struct {
	Item    CartItem
	Product *Product
}
