// Package cart はカートへの商品追加と表示用の一覧を提供する。
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pantryplus/internal/model"
	"github.com/hitoshi/pantryplus/internal/repository"
	"github.com/hitoshi/pantryplus/internal/security"
)

// DefaultQuantity は数量が指定されなかった場合の数量。
const DefaultQuantity = 1

// Recorder はカート追加をメトリクスに記録する。
type Recorder interface {
	RecordCartItemAdded()
}

// Service はカートのサービス層。
type Service struct {
	repo      repository.CartRepository
	sanitizer security.TextSanitizer
	recorder  Recorder
	now       func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.CartRepository, sanitizer security.TextSanitizer, recorder Recorder) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// AddItem は商品スナップショットから新しい商品行を作り、カートに追加する。
// 同じ商品を追加しても既存の行は再利用せず、1回の追加ごとに1行作成する。
func (s *Service) AddItem(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, model.NewValidationError("quantityは1以上で指定してください")
	}
	vendorProductID := strings.TrimSpace(snapshot.VendorProductID)
	if vendorProductID == "" {
		return nil, model.NewValidationError("product.productIdは必須です")
	}
	if snapshot.Price < 0 {
		return nil, model.NewValidationError("product.priceは0以上で指定してください")
	}
	if err := s.sanitizer.ValidateImageURL(snapshot.ImageURL); err != nil {
		return nil, model.NewValidationError("product.imageUrlが不正です")
	}

	now := s.now()
	product := &model.Product{
		ID:              uuid.New().String(),
		VendorProductID: s.sanitizer.SanitizeText(vendorProductID),
		Name:            s.sanitizer.SanitizeText(snapshot.Name),
		Aisle:           s.sanitizeAisle(snapshot.Aisle),
		Price:           snapshot.Price,
		ImageURL:        snapshot.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	item := &model.CartItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.AddItem(ctx, product, item); err != nil {
		return nil, fmt.Errorf("カートへの追加に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordCartItemAdded()
	}
	slog.Info("カートに商品を追加しました",
		slog.String("user_id", userID),
		slog.String("product_id", product.VendorProductID),
		slog.Int("quantity", quantity),
	)
	return item, nil
}

// ListItems はユーザーのカートを表示用の商品一覧として返す。
func (s *Service) ListItems(ctx context.Context, userID string) ([]model.Product, error) {
	rows, err := s.repo.ListJoinedByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}
	return Aggregate(rows), nil
}

func (s *Service) sanitizeAisle(a model.Aisle) model.Aisle {
	return model.Aisle{
		BayNumber:          s.sanitizer.SanitizeText(a.BayNumber),
		Description:        s.sanitizer.SanitizeText(a.Description),
		Number:             s.sanitizer.SanitizeText(a.Number),
		NumberOfFacings:    s.sanitizer.SanitizeText(a.NumberOfFacings),
		Side:               s.sanitizer.SanitizeText(a.Side),
		ShelfNumber:        s.sanitizer.SanitizeText(a.ShelfNumber),
		ShelfPositionInBay: s.sanitizer.SanitizeText(a.ShelfPositionInBay),
	}
}
