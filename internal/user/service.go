// Package user はリクエストの操作対象ユーザーの解決と、選択店舗の管理を提供する。
package user

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pantryplus/internal/model"
	"github.com/hitoshi/pantryplus/internal/repository"
)

// LocationInput は選択店舗の保存リクエスト。
type LocationInput struct {
	VendorLocationID string
	Name             string
	Address          json.RawMessage
}

// Service はユーザーと選択店舗のサービス層。
type Service struct {
	userRepo     repository.UserRepository
	locationRepo repository.LocationRepository
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, locationRepo repository.LocationRepository) *Service {
	return &Service{
		userRepo:     userRepo,
		locationRepo: locationRepo,
		now:          time.Now,
	}
}

// ResolveOwner はリクエストで指定されたkrogerIdのユーザーを返す。
// ログイン中のユーザー以外を指定した場合はForbiddenエラーを返す。
func (s *Service) ResolveOwner(ctx context.Context, sessionUserID, krogerID string) (*model.User, error) {
	krogerID = strings.TrimSpace(krogerID)
	if krogerID == "" {
		return nil, model.NewValidationError("krogerIdは必須です")
	}

	user, err := s.userRepo.FindByVendorID(ctx, krogerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.ID != sessionUserID {
		slog.Warn("他のユーザーのデータへのアクセスを拒否しました",
			slog.String("session_user_id", sessionUserID),
			slog.String("target_user_id", user.ID),
		)
		return nil, model.NewForbiddenError()
	}

	return user, nil
}

// SaveLocation はユーザーの選択店舗を保存する。既存の選択店舗は置き換えられる。
func (s *Service) SaveLocation(ctx context.Context, userID string, input LocationInput) (*model.Location, error) {
	if strings.TrimSpace(input.VendorLocationID) == "" {
		return nil, model.NewValidationError("locationIdは必須です")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, model.NewValidationError("nameは必須です")
	}
	if !isJSONObject(input.Address) {
		return nil, model.NewValidationError("addressはオブジェクトで指定してください")
	}

	now := s.now()
	location := &model.Location{
		ID:               uuid.New().String(),
		UserID:           userID,
		VendorLocationID: input.VendorLocationID,
		Name:             input.Name,
		Address:          input.Address,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.locationRepo.Replace(ctx, location); err != nil {
		return nil, fmt.Errorf("選択店舗の保存に失敗しました: %w", err)
	}

	slog.Info("選択店舗を保存しました",
		slog.String("user_id", userID),
		slog.String("location_id", input.VendorLocationID),
	)
	return location, nil
}

// GetLocation はユーザーの選択店舗を返す。未設定の場合はLocationNotFoundエラーを返す。
func (s *Service) GetLocation(ctx context.Context, userID string) (*model.Location, error) {
	location, err := s.locationRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("選択店舗の取得に失敗しました: %w", err)
	}
	if location == nil {
		return nil, model.NewLocationNotFoundError()
	}
	return location, nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}
