package model

import (
	"encoding/json"
	"time"
)

// Location はユーザーが選択した店舗（1ユーザー1行）を表す。
// Address はベンダーAPIの構造化住所をそのままJSONで保持する。
type Location struct {
	ID               string
	UserID           string
	VendorLocationID string
	Name             string
	Address          json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
