package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/pantryplus/internal/cart"
	"github.com/hitoshi/pantryplus/internal/model"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	AddItem(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error)
	ListItems(ctx context.Context, userID string) ([]model.Product, error)
}

// CartHandler はカートのHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
	owners  OwnerResolver
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface, owners OwnerResolver) *CartHandler {
	return &CartHandler{service: service, owners: owners}
}

type aisleDTO struct {
	BayNumber          string `json:"bayNumber"`
	Description        string `json:"description"`
	Number             string `json:"number"`
	NumberOfFacings    string `json:"numberOfFacings"`
	Side               string `json:"side"`
	ShelfNumber        string `json:"shelfNumber"`
	ShelfPositionInBay string `json:"shelfPositionInBay"`
}

type productDTO struct {
	ProductID string   `json:"productId" validate:"required"`
	Name      string   `json:"name"`
	Aisle     aisleDTO `json:"aisle"`
	Price     float64  `json:"price" validate:"gte=0"`
	ImageURL  string   `json:"imageUrl" validate:"omitempty,url"`
}

type addToCartRequest struct {
	KrogerID string     `json:"krogerId"`
	Product  productDTO `json:"product"`
	Quantity *int       `json:"quantity" validate:"omitnil,gte=1"`
}

// productResponse はカート内商品のAPIレスポンス。idはKrogerの商品ID。
type productResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Aisle    aisleDTO `json:"aisle"`
	Price    float64  `json:"price"`
	ImageURL string   `json:"imageUrl"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:   p.VendorProductID,
		Name: p.Name,
		Aisle: aisleDTO{
			BayNumber:          p.Aisle.BayNumber,
			Description:        p.Aisle.Description,
			Number:             p.Aisle.Number,
			NumberOfFacings:    p.Aisle.NumberOfFacings,
			Side:               p.Aisle.Side,
			ShelfNumber:        p.Aisle.ShelfNumber,
			ShelfPositionInBay: p.Aisle.ShelfPositionInBay,
		},
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}

func (p productDTO) toSnapshot() model.ProductSnapshot {
	return model.ProductSnapshot{
		VendorProductID: p.ProductID,
		Name:            p.Name,
		Aisle: model.Aisle{
			BayNumber:          p.Aisle.BayNumber,
			Description:        p.Aisle.Description,
			Number:             p.Aisle.Number,
			NumberOfFacings:    p.Aisle.NumberOfFacings,
			Side:               p.Aisle.Side,
			ShelfNumber:        p.Aisle.ShelfNumber,
			ShelfPositionInBay: p.Aisle.ShelfPositionInBay,
		},
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}

// AddItem は商品をカートに追加する。quantity省略時は1。
// POST /api/cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	owner, err := h.owners.ResolveOwner(r.Context(), sessionUserID(r), req.KrogerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	quantity := cart.DefaultQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if _, err := h.service.AddItem(r.Context(), owner.ID, req.Product.toSnapshot(), quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Item added to cart"})
}

// ListItems はカート内の商品一覧を返す。同じ商品は1件にまとめられる。
// GET /api/cart/items?krogerId=
func (h *CartHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owners.ResolveOwner(r.Context(), sessionUserID(r), r.URL.Query().Get("krogerId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	products, err := h.service.ListItems(r.Context(), owner.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}
