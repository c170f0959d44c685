package kroger

import (
	"net/http"
	"strings"
	"time"
)

// CallRecorder はベンダーAPI呼び出しの結果とレイテンシを記録する。
type CallRecorder interface {
	RecordVendorCall(endpoint, outcome string, duration time.Duration)
}

// 呼び出し結果のラベル
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// instrumentedTransport はすべてのベンダー呼び出しを計測するRoundTripper。
// x/oauth2のトークン要求もこのTransportを経由する。
type instrumentedTransport struct {
	base     http.RoundTripper
	recorder CallRecorder
}

func instrument(client *http.Client, recorder CallRecorder) *http.Client {
	if recorder == nil {
		return client
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &instrumentedTransport{base: base, recorder: recorder}
	return &wrapped
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	outcome := OutcomeSuccess
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = OutcomeError
	}
	t.recorder.RecordVendorCall(endpointLabel(req.URL.Path), outcome, time.Since(start))

	return resp, err
}

// endpointLabel はURLパスをメトリクス用の固定ラベルに変換する。
func endpointLabel(path string) string {
	switch {
	case strings.HasSuffix(path, "/connect/oauth2/token"):
		return "token"
	case strings.HasSuffix(path, "/identity/profile"):
		return "profile"
	case strings.HasSuffix(path, "/products"):
		return "products"
	case strings.HasSuffix(path, "/locations"):
		return "locations"
	default:
		return "other"
	}
}

// basicAuthTransport はトークン要求にクライアントIDとシークレットをそのままBasic認証で付与する。
// x/oauth2のAuthStyleInHeaderは値をURLエスケープするため使わない。
type basicAuthTransport struct {
	base                   http.RoundTripper
	clientID, clientSecret string
}

func withBasicAuth(client *http.Client, clientID, clientSecret string) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &basicAuthTransport{base: base, clientID: clientID, clientSecret: clientSecret}
	return &wrapped
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.clientID, t.clientSecret)
	return t.base.RoundTrip(r)
}
