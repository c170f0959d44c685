// Package app は設定の読み込みと依存関係のワイヤリングを行い、
// サブコマンドに応じてAPIサーバー・ワーカー・マイグレーションを起動する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/pantryplus/internal/auth"
	"github.com/hitoshi/pantryplus/internal/cart"
	"github.com/hitoshi/pantryplus/internal/config"
	"github.com/hitoshi/pantryplus/internal/database"
	"github.com/hitoshi/pantryplus/internal/handler"
	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/logger"
	"github.com/hitoshi/pantryplus/internal/metrics"
	"github.com/hitoshi/pantryplus/internal/middleware"
	"github.com/hitoshi/pantryplus/internal/repository"
	"github.com/hitoshi/pantryplus/internal/security"
	"github.com/hitoshi/pantryplus/internal/user"
	"github.com/hitoshi/pantryplus/internal/worker/cleanup"
)

// envFile は起動時に読み込む.envファイルのパス。
const envFile = ".env"

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envファイルを環境変数に読み込み、JSON構造化ログをセットアップしてからConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（既存の環境変数は上書きしない）
	envErr := config.LoadEnvFile(envFile)

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	if envErr != nil {
		slog.Warn("failed to load env file", slog.String("error", envErr.Error()))
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続プールを開き、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// server はワイヤリング済みのHTTPハンドラーと停止処理を保持する。
type server struct {
	handler http.Handler
	cleanup *cleanup.SessionCleanupJob
	close   func()
}

// newServer は全依存関係をワイヤリングしたHTTPハンドラーを構築する。
// dbへの接続はリクエスト処理時まで行わない。
func newServer(cfg *config.Config, db *sql.DB) *server {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	locationRepo := repository.NewPostgresLocationRepo(db)
	cartRepo := repository.NewPostgresCartRepo(db)

	// 3. Krogerクライアント
	krogerClient := kroger.NewClient(kroger.Config{
		ClientID:     cfg.KrogerClientID,
		ClientSecret: cfg.KrogerClientSecret,
		APIURL:       cfg.KrogerAPIURL,
		RedirectURL:  cfg.KrogerRedirectURL,
		Scopes:       cfg.KrogerScopes,
		Timeout:      cfg.VendorTimeout,
	}, slog.Default(), collector)

	// 4. ドメインサービス
	authService := auth.NewService(
		krogerClient, userRepo, tokenRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		collector,
	)
	userService := user.NewService(userRepo, locationRepo)
	cartService := cart.NewService(cartRepo, security.NewTextSanitizer(), collector)
	signer := auth.NewSessionSigner(cfg.SessionSecret)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		SessionParser:     signer,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    rateLimiter,
		Logger:         slog.Default(),
		StatusRecorder: collector,

		AuthService: authService,
		Signer:      signer,
		AuthConfig: handler.AuthHandlerConfig{
			Cookie: middleware.SessionCookieConfig{
				Secure: cfg.CookieSecure,
				Domain: cfg.CookieDomain,
			},
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService: userService,
		CartService: cartService,

		Catalog:          krogerClient,
		Credentials:      krogerClient,
		CredentialsStore: config.EnvFile(cfg.SettingsEnvFile),

		Health: db,
		Debug: handler.DebugInfo{
			ClientID:    cfg.KrogerClientID,
			APIURL:      cfg.KrogerAPIURL,
			RedirectURI: krogerClient.RedirectURL(),
		},
		MetricsHandler: metrics.Handler(registry),
	})

	return &server{
		handler: router,
		cleanup: cleanup.NewSessionCleanupJob(sessionRepo, collector, slog.Default()),
		close:   rateLimiter.Stop,
	}
}

// runServe はAPIサーバーモードで起動する。
// 期限切れセッションの削除もバックグラウンドで実行する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := newServer(cfg, db)
	defer srv.close()

	go srv.cleanup.Start(ctx, cfg.SessionCleanupInterval)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// APIサーバーとは別プロセスで期限切れセッションの削除だけを行う。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// ワーカーは/metricsを公開しないため件数はログのみに残す
	job := cleanup.NewSessionCleanupJob(repository.NewPostgresSessionRepo(db), nil, slog.Default())

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck は /health にリクエストを送り、200以外ならエラーを返す。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できないURLは全体をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
