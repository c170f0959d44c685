package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はDBの疎通確認を行う。*sql.DB が実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// DebugInfo は /api/debug で公開する設定の要約。シークレットは含めない。
type DebugInfo struct {
	ClientID    string `json:"clientId"`
	APIURL      string `json:"apiUrl"`
	RedirectURI string `json:"redirectUri"`
}

// SystemHandler はウェルカム・デバッグ・ヘルスチェックのハンドラー。
type SystemHandler struct {
	health HealthChecker
	debug  DebugInfo
}

// NewSystemHandler はSystemHandlerを生成する。
func NewSystemHandler(health HealthChecker, debug DebugInfo) *SystemHandler {
	return &SystemHandler{health: health, debug: debug}
}

// Welcome はGET /のレスポンスを返す。
func (h *SystemHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Pantry Plus API"})
}

// Debug はKroger連携の設定を返す。
// GET /api/debug
func (h *SystemHandler) Debug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "API server is running",
		"krogerConfig": h.debug,
	})
}

// Health はDBに接続できれば200、できなければ503を返す。
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.health.PingContext(ctx); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
