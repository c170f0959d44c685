package kroger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

const (
	productSearchLimit  = 50
	locationSearchLimit = 10

	// DefaultRadiusInMiles は店舗検索の既定の半径。
	DefaultRadiusInMiles = 10
)

// SearchProducts は商品カタログを検索し、ベンダーのレスポンスをそのまま返す。
func (c *Client) SearchProducts(ctx context.Context, term, locationID string) (json.RawMessage, error) {
	return c.catalogGet(ctx, "/products", map[string]string{
		"filter.term":       term,
		"filter.locationId": locationID,
		"filter.limit":      strconv.Itoa(productSearchLimit),
	})
}

// SearchLocations は郵便番号の周辺の店舗を検索する。radiusInMilesが0以下の場合は既定値を使う。
func (c *Client) SearchLocations(ctx context.Context, zipCode string, radiusInMiles int) (json.RawMessage, error) {
	if radiusInMiles <= 0 {
		radiusInMiles = DefaultRadiusInMiles
	}
	return c.catalogGet(ctx, "/locations", map[string]string{
		"filter.zipCode.near":  zipCode,
		"filter.radiusInMiles": strconv.Itoa(radiusInMiles),
		"filter.limit":         strconv.Itoa(locationSearchLimit),
	})
}

// catalogGet はアプリトークンでカタログAPIを呼び出す。
func (c *Client) catalogGet(ctx context.Context, path string, query map[string]string) (json.RawMessage, error) {
	token, err := c.AppToken(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.get(ctx, path, query, token)
	if err != nil {
		c.logger.Warn("カタログAPIリクエストに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if status < 200 || status > 299 {
		c.logUpstreamError("カタログAPIがエラーを返しました", path, status, body)
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, status)
	}
	if !json.Valid(body) {
		c.logUpstreamError("カタログAPIのレスポンスがJSONではありません", path, status, body)
		return nil, fmt.Errorf("%w: invalid json", ErrUpstreamUnavailable)
	}

	return json.RawMessage(body), nil
}
