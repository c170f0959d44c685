package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pantryplus/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionParser     middleware.SessionTokenParser
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 認証
	AuthService AuthServiceInterface
	Signer      SessionTokenSigner
	AuthConfig  AuthHandlerConfig
	// BridgeRedirectPath は認証成功後にブリッジページが遷移するパス
	BridgeRedirectPath string

	// ユーザー・店舗
	UserService LocationServiceInterface

	// カート
	CartService CartServiceInterface

	// Kroger
	Catalog          CatalogClient
	Credentials      CredentialsVerifier
	CredentialsStore CredentialsStore

	// システム
	Health         HealthChecker
	Debug          DebugInfo
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → SessionLoader → Logging → RateLimit(General)
//
// セッション必須のルートには RequireSession → CSRF を追加する。
// コールバックとログアウトはstate検証と冪等性で保護するためCSRF検証の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionLoader(deps.SessionParser, deps.SessionFinder))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.UserService, deps.Signer, deps.AuthConfig)
	locationHandler := NewLocationHandler(deps.UserService)
	cartHandler := NewCartHandler(deps.CartService, deps.UserService)
	catalogHandler := NewCatalogHandler(deps.Catalog)
	settingsHandler := NewSettingsHandler(deps.Credentials, deps.CredentialsStore)
	systemHandler := NewSystemHandler(deps.Health, deps.Debug)

	// --- レート制限の対象外 ---
	r.Get("/health", systemHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", systemHandler.Welcome)
		r.Get("/api/debug", systemHandler.Debug)
		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// Kroger カタログのプロキシ
		r.Get("/api/products", catalogHandler.SearchProducts)
		r.Get("/api/locations", catalogHandler.SearchLocations)

		// OAuthフロー（ログイン試行は認証専用のレート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Get("/auth/callback", NewBridgeHandler(deps.BridgeRedirectPath).ServeHTTP)
			r.Get("/api/auth/kroger/authorize", authHandler.Authorize)
			r.Post("/api/auth/kroger/callback", authHandler.Callback)
			r.Post("/api/auth/kroger/logout", authHandler.Logout)
		})

		// --- セッションが必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireSession())
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Get("/api/auth/kroger/profile", authHandler.Profile)
			r.Post("/api/auth/kroger/validate", authHandler.Validate)

			// 選択店舗
			r.Get("/api/user/location", locationHandler.GetLocation)
			r.Post("/api/user/location", locationHandler.SaveLocation)

			// カート
			r.Post("/api/cart/add", cartHandler.AddItem)
			r.Get("/api/cart/items", cartHandler.ListItems)

			// Kroger API 認証情報
			r.Post("/api/settings/kroger", settingsHandler.SaveCredentials)
			r.Get("/api/settings/kroger/test", settingsHandler.TestConnection)
		})
	})

	return r
}
