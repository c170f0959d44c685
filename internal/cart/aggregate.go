package cart

import "github.com/hitoshi/pantryplus/internal/model"

// Aggregate はカート行を表示用の商品一覧に変換する。
// 商品が削除された行を除外し、ベンダー商品IDが同じ商品は結合順で最初の1件だけを残す。
// 数量の合算や合計金額の計算は行わない。
func Aggregate(rows []model.CartRow) []model.Product {
	products := make([]model.Product, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		if row.Product == nil {
			continue
		}
		key := row.Product.VendorProductID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		products = append(products, *row.Product)
	}

	return products
}
