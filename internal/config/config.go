// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultKrogerAPIURL = "https://api.kroger.com/v1"
	defaultKrogerScopes = "product.compact profile.compact"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// リクエストハンドラーから書き換えてはならない。
type Config struct {
	// Database
	DatabaseURL string

	// Kroger
	KrogerClientID     string
	KrogerClientSecret string
	KrogerAPIURL       string
	KrogerRedirectURL  string
	KrogerScopes       []string
	VendorTimeout      time.Duration

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Settings
	SettingsEnvFile string

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.KrogerClientID = os.Getenv("KROGER_CLIENT_ID")
	if cfg.KrogerClientID == "" {
		missing = append(missing, "KROGER_CLIENT_ID")
	}

	cfg.KrogerClientSecret = os.Getenv("KROGER_CLIENT_SECRET")
	if cfg.KrogerClientSecret == "" {
		missing = append(missing, "KROGER_CLIENT_SECRET")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.KrogerAPIURL = strings.TrimRight(getEnvString("KROGER_API_URL", defaultKrogerAPIURL), "/")
	cfg.KrogerRedirectURL = getEnvString("KROGER_REDIRECT_URL", strings.TrimRight(cfg.BaseURL, "/")+"/auth/callback")
	cfg.KrogerScopes = strings.Fields(getEnvString("KROGER_SCOPES", defaultKrogerScopes))
	cfg.VendorTimeout = getEnvDuration("VENDOR_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.SettingsEnvFile = getEnvString("SETTINGS_ENV_FILE", ".env")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
