// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ベンダークライアント、サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordVendorCall(endpoint, outcome string, duration time.Duration)
	RecordLogin(isNew bool)
	RecordHTTPStatus(statusCode int)
	RecordCartItemAdded()
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	vendorCalls     *prometheus.CounterVec
	vendorLatency   *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	cartItemsAdded  prometheus.Counter
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		vendorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantryplus_vendor_calls_total",
			Help: "Kroger API呼び出しの合計数（エンドポイント・結果別）",
		}, []string{"endpoint", "outcome"}),
		vendorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pantryplus_vendor_call_latency_seconds",
			Help:    "Kroger API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantryplus_logins_total",
			Help: "ログイン成功の合計数（新規・既存ユーザー別）",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantryplus_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		cartItemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pantryplus_cart_items_added_total",
			Help: "カートに追加された商品の合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pantryplus_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.vendorCalls,
		c.vendorLatency,
		c.logins,
		c.httpStatus,
		c.cartItemsAdded,
		c.sessionsCleaned,
	)

	return c
}

// RecordVendorCall はベンダーAPI呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordVendorCall(endpoint, outcome string, duration time.Duration) {
	c.vendorCalls.WithLabelValues(endpoint, outcome).Inc()
	c.vendorLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin(isNew bool) {
	kind := "returning"
	if isNew {
		kind = "new"
	}
	c.logins.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCartItemAdded はカート追加を記録する。
func (c *Collector) RecordCartItemAdded() {
	c.cartItemsAdded.Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
