package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/model"
)

// CatalogClient はKrogerの商品・店舗検索APIのプロキシに必要なインターフェース。
type CatalogClient interface {
	SearchProducts(ctx context.Context, term, locationID string) (json.RawMessage, error)
	SearchLocations(ctx context.Context, zipCode string, radiusInMiles int) (json.RawMessage, error)
}

// CatalogHandler は商品・店舗検索のHTTPハンドラー。
// Kroger APIのレスポンスボディをそのまま返す。
type CatalogHandler struct {
	client CatalogClient
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(client CatalogClient) *CatalogHandler {
	return &CatalogHandler{client: client}
}

// SearchProducts は商品を検索する。
// GET /api/products?term=&locationId=
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("term"))
	locationID := strings.TrimSpace(q.Get("locationId"))
	if term == "" || locationID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("termとlocationIdは必須です"))
		return
	}

	body, err := h.client.SearchProducts(r.Context(), term, locationID)
	if err != nil {
		h.writeUpstreamError(w, err, "商品")
		return
	}
	writeRawJSON(w, body)
}

// SearchLocations は郵便番号の周辺店舗を検索する。
// GET /api/locations?zipCode=&radiusInMiles=
func (h *CatalogHandler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	zipCode := strings.TrimSpace(q.Get("zipCode"))
	if zipCode == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("zipCodeは必須です"))
		return
	}

	radius := kroger.DefaultRadiusInMiles
	if v := q.Get("radiusInMiles"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("radiusInMilesは1以上の整数で指定してください"))
			return
		}
		radius = n
	}

	body, err := h.client.SearchLocations(r.Context(), zipCode, radius)
	if err != nil {
		h.writeUpstreamError(w, err, "店舗")
		return
	}
	writeRawJSON(w, body)
}

func (h *CatalogHandler) writeUpstreamError(w http.ResponseWriter, err error, what string) {
	if !errors.Is(err, kroger.ErrUpstreamUnavailable) && !errors.Is(err, kroger.ErrUpstreamAuth) {
		handleServiceError(w, err)
		return
	}
	slog.Warn("catalog request failed", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError(what))
}

// writeRawJSON はベンダーから受け取ったJSONをそのまま書き込む。
func writeRawJSON(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
