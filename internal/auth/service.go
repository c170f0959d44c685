// Package auth はKroger OAuthのログインフロー、ベンダーセッションの検証、
// ログインセッションの管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/model"
	"github.com/hitoshi/pantryplus/internal/repository"
)

// ErrSessionExpired は保存済みのベンダートークンが無い、期限切れ、
// またはベンダーに拒否された状態を表す。再ログインが必要。
var ErrSessionExpired = errors.New("auth: vendor session expired")

// VendorClient はログインフローで使用するKroger APIの操作。
type VendorClient interface {
	// AuthorizationURL は認可URLを生成する。
	AuthorizationURL(state string) string
	// ExchangeCode は認可コードをユーザートークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*kroger.TokenSet, error)
	// FetchProfile はアクセストークンでプロフィールを取得する。
	FetchProfile(ctx context.Context, accessToken string) (*kroger.Profile, error)
}

// LoginRecorder はログイン成功をメトリクスに記録する。
type LoginRecorder interface {
	RecordLogin(isNew bool)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// CallbackResult はOAuthコールバック処理の結果。
type CallbackResult struct {
	User    *model.User
	IsNew   bool
	Session *model.Session
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	vendor      VendorClient
	userRepo    repository.UserRepository
	tokenRepo   repository.TokenRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	recorder    LoginRecorder
	now         func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	vendor VendorClient,
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	recorder LoginRecorder,
) *Service {
	return &Service{
		vendor:      vendor,
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		config:      config,
		recorder:    recorder,
		now:         time.Now,
	}
}

// AuthorizationURL はKrogerの認可URLを生成する。
func (s *Service) AuthorizationURL(state string) string {
	return s.vendor.AuthorizationURL(state)
}

// HandleCallback は認可コードを交換し、ユーザーとトークンを保存してセッションを発行する。
// いずれかの手順が失敗した場合はセッションを作成しない。
func (s *Service) HandleCallback(ctx context.Context, code string) (*CallbackResult, error) {
	// 1. 認可コードをトークンに交換
	tokens, err := s.vendor.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	// 2. プロフィールを取得
	profile, err := s.vendor.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: profile has no user id", kroger.ErrUpstreamProfile)
	}

	// 3. ユーザーを作成または更新
	now := s.now()
	user, isNew, err := s.userRepo.Upsert(ctx, &model.User{
		ID:        uuid.New().String(),
		VendorID:  profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// 4. トークンを置き換え
	err = s.tokenRepo.Replace(ctx, &model.Token{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	// 5. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordLogin(isNew)
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.Bool("is_new", isNew),
	)

	return &CallbackResult{User: user, IsNew: isNew, Session: session}, nil
}

// Validate は保存済みトークンがベンダーに受け入れられるか確認し、プロフィールを更新する。
// トークンが無い・期限切れ・拒否された場合はErrSessionExpiredを返す。
func (s *Service) Validate(ctx context.Context, user *model.User) (*model.User, error) {
	profile, err := s.liveProfile(ctx, user)
	if errors.Is(err, kroger.ErrUpstreamProfile) {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if err != nil {
		return nil, err
	}
	return s.refreshProfile(ctx, user, profile)
}

// Profile はベンダーから最新のプロフィールを取得する。
// Validateと異なり、ベンダー側の失敗はErrUpstreamProfileのまま返す。
func (s *Service) Profile(ctx context.Context, user *model.User) (*model.User, error) {
	profile, err := s.liveProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.refreshProfile(ctx, user, profile)
}

// Logout はユーザーのトークンとセッションを削除する。
// userIDまたはsessionIDが空の場合はその削除を行わない。
func (s *Service) Logout(ctx context.Context, sessionID, userID string) error {
	if userID != "" {
		if err := s.tokenRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete tokens: %w", err)
		}
	}
	if sessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	slog.Info("user logged out",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// CurrentSession は有効なセッションを返す。存在しないか期限切れの場合はnilを返す。
func (s *Service) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// liveProfile は保存済みトークンでプロフィールを取得する。
func (s *Service) liveProfile(ctx context.Context, user *model.User) (*kroger.Profile, error) {
	token, err := s.tokenRepo.FindValidByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	if token == nil {
		return nil, ErrSessionExpired
	}

	profile, err := s.vendor.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		slog.Warn("stored token rejected by vendor",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return profile, nil
}

// refreshProfile はプロフィール項目を保存済みユーザーに上書きする。
func (s *Service) refreshProfile(ctx context.Context, user *model.User, profile *kroger.Profile) (*model.User, error) {
	updated, _, err := s.userRepo.Upsert(ctx, &model.User{
		ID:        user.ID,
		VendorID:  user.VendorID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}
	return updated, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	now := s.now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}
