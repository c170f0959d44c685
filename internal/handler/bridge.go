package handler

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
)

// bridgeTemplate はKrogerからのリダイレクトを受け、認可コードをAPIにPOSTするページ。
// code・stateはhtml/templateによりJavaScript文字列として文脈に応じてエスケープされる。
var bridgeTemplate = template.Must(template.New("bridge").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Authenticating...</title>
  </head>
  <body>
    <div style="text-align: center; margin-top: 100px;">
      <h1>Completing Authentication</h1>
      {{if .Error}}
      <p id="status">Error: {{.Error}}</p>
      {{else}}
      <p>Please wait while we complete your authentication...</p>
      <p id="status"></p>
      <script nonce="{{.Nonce}}">
        (async function () {
          const status = document.getElementById('status');
          try {
            const response = await fetch({{.CallbackPath}}, {
              method: 'POST',
              credentials: 'same-origin',
              headers: { 'Content-Type': 'application/json' },
              body: JSON.stringify({ code: {{.Code}}, state: {{.State}} }),
            });
            const data = await response.json();
            if (data.success) {
              window.location.href = {{.RedirectPath}};
            } else {
              status.innerText = 'Error: ' + (data.message || 'Unknown error');
            }
          } catch (error) {
            status.innerText = 'Error: ' + error.message;
          }
        })();
      </script>
      {{end}}
    </div>
  </body>
</html>
`))

const (
	callbackAPIPath     = "/api/auth/kroger/callback"
	defaultRedirectPath = "/account"
)

type bridgePage struct {
	Code         string
	State        string
	Error        string
	Nonce        string
	CallbackPath string
	RedirectPath string
}

// BridgeHandler はOAuthリダイレクト先のHTMLページを返す。
type BridgeHandler struct {
	redirectPath string
}

// NewBridgeHandler はBridgeHandlerを生成する。redirectPathは認証成功後の遷移先。
func NewBridgeHandler(redirectPath string) *BridgeHandler {
	if redirectPath == "" {
		redirectPath = defaultRedirectPath
	}
	return &BridgeHandler{redirectPath: redirectPath}
}

// ServeHTTP はブリッジページを描画する。
// GET /auth/callback?code=&state= または ?error=
func (h *BridgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := bridgePage{
		Code:         q.Get("code"),
		State:        q.Get("state"),
		Error:        q.Get("error_description"),
		CallbackPath: callbackAPIPath,
		RedirectPath: h.redirectPath,
	}
	if page.Error == "" {
		page.Error = q.Get("error")
	}
	if page.Error == "" && page.Code == "" {
		page.Error = "authorization code is missing"
	}

	nonce, err := generateNonce()
	if err != nil {
		slog.Error("failed to generate nonce", slog.String("error", err.Error()))
		http.Error(w, "Authentication error. Please try again.", http.StatusInternalServerError)
		return
	}
	page.Nonce = nonce

	var buf bytes.Buffer
	if err := bridgeTemplate.Execute(&buf, page); err != nil {
		slog.Error("failed to render bridge page", slog.String("error", err.Error()))
		http.Error(w, "Authentication error. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Security-Policy",
		"default-src 'none'; script-src 'nonce-"+nonce+"'; connect-src 'self'; style-src 'unsafe-inline'; frame-ancestors 'none'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
