package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/pantryplus/internal/model"
)

func TestCartHandler_AddItem(t *testing.T) {
	var gotUserID string
	var gotSnapshot model.ProductSnapshot
	var gotQuantity int
	svc := &mockCartService{
		addItemFn: func(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error) {
			gotUserID, gotSnapshot, gotQuantity = userID, snapshot, quantity
			return &model.CartItem{ID: "item-1"}, nil
		},
	}
	h := NewCartHandler(svc, newUserService())

	body := `{
		"krogerId": "kroger-alice",
		"product": {
			"productId": "0001111041700",
			"name": "Kroger 2% Milk",
			"aisle": {"number": "12", "description": "Dairy", "side": "L"},
			"price": 3.49,
			"imageUrl": "https://www.kroger.com/product/images/medium/front/0001111041700"
		}
	}`
	w := httptest.NewRecorder()
	h.AddItem(w, withSession(jsonRequest(http.MethodPost, "/api/cart/add", body), alice))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotUserID != alice.ID {
		t.Errorf("userID = %q, want %q", gotUserID, alice.ID)
	}
	if gotQuantity != 1 {
		t.Errorf("quantity = %d, want default 1", gotQuantity)
	}
	if gotSnapshot.VendorProductID != "0001111041700" || gotSnapshot.Aisle.Description != "Dairy" || gotSnapshot.Price != 3.49 {
		t.Errorf("snapshot = %+v", gotSnapshot)
	}

	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["message"] == "" {
		t.Error("expected message")
	}
}

func TestCartHandler_AddItem_ExplicitQuantity(t *testing.T) {
	var gotQuantity int
	svc := &mockCartService{
		addItemFn: func(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error) {
			gotQuantity = quantity
			return &model.CartItem{}, nil
		},
	}
	h := NewCartHandler(svc, newUserService())

	w := httptest.NewRecorder()
	h.AddItem(w, withSession(jsonRequest(http.MethodPost, "/api/cart/add",
		`{"krogerId":"kroger-alice","product":{"productId":"p1"},"quantity":3}`), alice))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotQuantity != 3 {
		t.Errorf("quantity = %d, want 3", gotQuantity)
	}
}

func TestCartHandler_AddItem_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"productId未指定", `{"krogerId":"kroger-alice","product":{"name":"x"}}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"quantityが0", `{"krogerId":"kroger-alice","product":{"productId":"p"},"quantity":0}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"負の価格", `{"krogerId":"kroger-alice","product":{"productId":"p","price":-1}}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"不正な画像URL", `{"krogerId":"kroger-alice","product":{"productId":"p","imageUrl":"not a url"}}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"krogerId未指定", `{"product":{"productId":"p"}}`, http.StatusBadRequest, model.ErrCodeValidation},
		{"他人のカート", `{"krogerId":"kroger-bob","product":{"productId":"p"}}`, http.StatusForbidden, model.ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockCartService{
				addItemFn: func(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error) {
					called = true
					return &model.CartItem{}, nil
				},
			}
			h := NewCartHandler(svc, newUserService())

			w := httptest.NewRecorder()
			h.AddItem(w, withSession(jsonRequest(http.MethodPost, "/api/cart/add", tt.body), alice))

			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
			if called {
				t.Error("AddItem should not be called")
			}
		})
	}
}

func TestCartHandler_ListItems(t *testing.T) {
	svc := &mockCartService{
		listItemsFn: func(ctx context.Context, userID string) ([]model.Product, error) {
			if userID != alice.ID {
				t.Errorf("userID = %q, want %q", userID, alice.ID)
			}
			return []model.Product{
				{ID: "local-1", VendorProductID: "p1", Name: "Milk", Price: 3.49, Aisle: model.Aisle{Number: "12"}},
				{ID: "local-2", VendorProductID: "p2", Name: "Eggs"},
			}, nil
		},
	}
	h := NewCartHandler(svc, newUserService())

	w := httptest.NewRecorder()
	h.ListItems(w, withSession(httptest.NewRequest(http.MethodGet, "/api/cart/items?krogerId=kroger-alice", nil), alice))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var items []productResponse
	decodeBody(t, w, &items)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ID != "p1" || items[0].Aisle.Number != "12" {
		t.Errorf("items[0] = %+v", items[0])
	}
}

func TestCartHandler_ListItems_EmptyIsArray(t *testing.T) {
	h := NewCartHandler(&mockCartService{}, newUserService())

	w := httptest.NewRecorder()
	h.ListItems(w, withSession(httptest.NewRequest(http.MethodGet, "/api/cart/items?krogerId=kroger-alice", nil), alice))

	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}
