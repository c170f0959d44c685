package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/pantryplus/internal/model"
	"github.com/hitoshi/pantryplus/internal/user"
)

// LocationServiceInterface は選択店舗ハンドラーが必要とするサービスインターフェース。
type LocationServiceInterface interface {
	OwnerResolver
	SaveLocation(ctx context.Context, userID string, input user.LocationInput) (*model.Location, error)
	GetLocation(ctx context.Context, userID string) (*model.Location, error)
}

// LocationHandler はユーザーの選択店舗のHTTPハンドラー。
type LocationHandler struct {
	service LocationServiceInterface
}

// NewLocationHandler はLocationHandlerを生成する。
func NewLocationHandler(service LocationServiceInterface) *LocationHandler {
	return &LocationHandler{service: service}
}

type saveLocationRequest struct {
	KrogerID   string          `json:"krogerId"`
	LocationID string          `json:"locationId"`
	Name       string          `json:"name"`
	Address    json.RawMessage `json:"address"`
}

// locationResponse は選択店舗のAPIレスポンス。idはKrogerの店舗ID。
type locationResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Address json.RawMessage `json:"address"`
}

func toLocationResponse(l *model.Location) locationResponse {
	return locationResponse{
		ID:      l.VendorLocationID,
		Name:    l.Name,
		Address: l.Address,
	}
}

// SaveLocation は選択店舗を保存する。
// POST /api/user/location
func (h *LocationHandler) SaveLocation(w http.ResponseWriter, r *http.Request) {
	var req saveLocationRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	owner, err := h.service.ResolveOwner(r.Context(), sessionUserID(r), req.KrogerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	location, err := h.service.SaveLocation(r.Context(), owner.ID, user.LocationInput{
		VendorLocationID: req.LocationID,
		Name:             req.Name,
		Address:          req.Address,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Location saved successfully",
		"location": toLocationResponse(location),
	})
}

// GetLocation は選択店舗を返す。
// GET /api/user/location?krogerId=
func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	owner, err := h.service.ResolveOwner(r.Context(), sessionUserID(r), r.URL.Query().Get("krogerId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	location, err := h.service.GetLocation(r.Context(), owner.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"location": toLocationResponse(location)})
}
