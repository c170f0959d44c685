package cart

import (
	"testing"

	"github.com/hitoshi/pantryplus/internal/model"
)

func row(itemID string, product *model.Product) model.CartRow {
	return model.CartRow{Item: model.CartItem{ID: itemID}, Product: product}
}

func TestAggregate(t *testing.T) {
	milkFirst := &model.Product{ID: "p1", VendorProductID: "milk", Name: "Milk (first add)"}
	milkSecond := &model.Product{ID: "p2", VendorProductID: "milk", Name: "Milk (second add)"}
	eggs := &model.Product{ID: "p3", VendorProductID: "eggs", Name: "Eggs"}

	tests := []struct {
		name    string
		rows    []model.CartRow
		wantIDs []string
	}{
		{"空", nil, []string{}},
		{"重複なし", []model.CartRow{row("c1", milkFirst), row("c2", eggs)}, []string{"p1", "p3"}},
		{"同じ商品は最初の1件", []model.CartRow{row("c1", milkFirst), row("c2", eggs), row("c3", milkSecond)}, []string{"p1", "p3"}},
		{"削除済み商品は除外", []model.CartRow{row("c1", nil), row("c2", eggs), row("c3", nil)}, []string{"p3"}},
		{"すべて削除済み", []model.CartRow{row("c1", nil)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.rows)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d (%+v)", len(got), len(tt.wantIDs), got)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestAggregate_ReturnsNonNilSlice(t *testing.T) {
	if got := Aggregate(nil); got == nil {
		t.Error("Aggregate(nil) returned nil; JSONでnullにならないよう空スライスを返すこと")
	}
}
