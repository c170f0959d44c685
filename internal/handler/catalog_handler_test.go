package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/model"
)

func TestCatalogHandler_SearchProducts_PassesThrough(t *testing.T) {
	upstream := `{"data":[{"productId":"0001111041700","description":"Milk"}],"meta":{"pagination":{"total":1}}}`
	catalog := &mockCatalog{
		searchProductsFn: func(ctx context.Context, term, locationID string) (json.RawMessage, error) {
			if term != "milk" || locationID != "01400943" {
				t.Errorf("term=%q locationId=%q", term, locationID)
			}
			return json.RawMessage(upstream), nil
		},
	}
	h := NewCatalogHandler(catalog)

	w := httptest.NewRecorder()
	h.SearchProducts(w, httptest.NewRequest(http.MethodGet, "/api/products?term=milk&locationId=01400943", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != upstream {
		t.Errorf("body = %s, want upstream body unchanged", w.Body.String())
	}
}

func TestCatalogHandler_SearchProducts_RequiresParams(t *testing.T) {
	h := NewCatalogHandler(&mockCatalog{})

	for _, query := range []string{"", "?term=milk", "?locationId=1", "?term=%20&locationId=1"} {
		t.Run(query, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.SearchProducts(w, httptest.NewRequest(http.MethodGet, "/api/products"+query, nil))
			assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidation)
		})
	}
}

func TestCatalogHandler_SearchLocations(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantRadius int
	}{
		{"既定の半径", "?zipCode=45202", kroger.DefaultRadiusInMiles},
		{"半径指定", "?zipCode=45202&radiusInMiles=25", 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRadius int
			h := NewCatalogHandler(&mockCatalog{
				searchLocationsFn: func(ctx context.Context, zipCode string, radius int) (json.RawMessage, error) {
					gotRadius = radius
					return json.RawMessage(`{"data":[]}`), nil
				},
			})

			w := httptest.NewRecorder()
			h.SearchLocations(w, httptest.NewRequest(http.MethodGet, "/api/locations"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if gotRadius != tt.wantRadius {
				t.Errorf("radius = %d, want %d", gotRadius, tt.wantRadius)
			}
		})
	}
}

func TestCatalogHandler_SearchLocations_BadParams(t *testing.T) {
	h := NewCatalogHandler(&mockCatalog{})

	for _, query := range []string{"", "?zipCode=45202&radiusInMiles=abc", "?zipCode=45202&radiusInMiles=0"} {
		t.Run(query, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.SearchLocations(w, httptest.NewRequest(http.MethodGet, "/api/locations"+query, nil))
			assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidation)
		})
	}
}

func TestCatalogHandler_UpstreamFailure(t *testing.T) {
	for _, upstreamErr := range []error{
		fmt.Errorf("%w: status 503", kroger.ErrUpstreamUnavailable),
		fmt.Errorf("%w: app token", kroger.ErrUpstreamAuth),
	} {
		h := NewCatalogHandler(&mockCatalog{
			searchProductsFn: func(ctx context.Context, term, locationID string) (json.RawMessage, error) {
				return nil, upstreamErr
			},
		})

		w := httptest.NewRecorder()
		h.SearchProducts(w, httptest.NewRequest(http.MethodGet, "/api/products?term=milk&locationId=1", nil))

		assertErrorCode(t, w, http.StatusInternalServerError, model.ErrCodeUpstreamUnavailable)
	}
}
