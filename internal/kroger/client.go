// Package kroger はKroger APIのOAuth2フローとカタログAPIのクライアントを提供する。
package kroger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultAPIURL はKroger APIのベースURL。
	DefaultAPIURL = "https://api.kroger.com/v1"

	// appScope はクライアントクレデンシャルで要求するスコープ。
	appScope = "product.compact"

	// defaultTokenLifetime はexpires_inが返らなかった場合のトークン有効期間。
	defaultTokenLifetime = 30 * time.Minute

	defaultTimeout = 10 * time.Second

	// maxResponseBody はベンダーレスポンスの読み取り上限（バイト）。
	maxResponseBody = 4 << 20
)

// DefaultScopes はユーザー認可で要求するスコープ。
var DefaultScopes = []string{"product.compact", "profile.compact"}

// Config はKrogerクライアントの設定。
type Config struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration

	// テスト用にオーバーライド可能なHTTPクライアント
	HTTPClient *http.Client
}

// TokenSet は認可コード交換で得られたユーザートークン。
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Profile はベンダーのユーザープロフィール。欠落した項目は空文字になる。
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Client はKroger APIクライアント。
type Client struct {
	apiURL string
	// oauth は認可URLの生成に使う。トークン要求には exchange を使う。
	oauth       *oauth2.Config
	exchange    *oauth2.Config
	httpClient  *http.Client
	tokenClient *http.Client
	appTokens   oauth2.TokenSource
	logger      *slog.Logger
	now         func() time.Time
}

// NewClient はClientを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewClient(cfg Config, logger *slog.Logger, recorder CallRecorder) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	httpClient = instrument(httpClient, recorder)

	c := &Client{
		apiURL: apiURL,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint:    endpoint(apiURL),
		},
		// 認証情報はBasic認証ヘッダーで送るため、フォームには含めない
		exchange: &oauth2.Config{
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint:    endpoint(apiURL),
		},
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
	c.tokenClient = withBasicAuth(httpClient, cfg.ClientID, cfg.ClientSecret)

	// アプリトークンは期限切れまでキャッシュして再利用する。
	bg := context.WithValue(context.Background(), oauth2.HTTPClient, c.tokenClient)
	c.appTokens = oauth2.ReuseTokenSource(nil, c.clientCredentials().TokenSource(bg))

	return c
}

func endpoint(apiURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   apiURL + "/connect/oauth2/authorize",
		TokenURL:  apiURL + "/connect/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// clientCredentials はクライアントクレデンシャルの設定を返す。
// ClientIDとClientSecretは空にし、認証はwithBasicAuthのヘッダーに任せる。
func (c *Client) clientCredentials() *clientcredentials.Config {
	return &clientcredentials.Config{
		TokenURL:  c.exchange.Endpoint.TokenURL,
		Scopes:    []string{appScope},
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func withTokenClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// AuthorizationURL はユーザーをリダイレクトするKrogerの認可URLを生成する。
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// RedirectURL は認可URLとコード交換で使用するredirect_uriを返す。
func (c *Client) RedirectURL() string {
	return c.oauth.RedirectURL
}

// AppToken はクライアントクレデンシャルで取得したアプリトークンを返す。
func (c *Client) AppToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := c.appTokens.Token()
	if err != nil {
		c.logTokenError("クライアントクレデンシャルによるトークン取得に失敗しました", err)
		return "", fmt.Errorf("%w: client credentials", ErrUpstreamAuth)
	}
	return tok.AccessToken, nil
}

// VerifyCredentials は指定されたクライアントID・シークレットでトークンを取得できるか確認する。
// キャッシュは使わず、毎回トークンエンドポイントに問い合わせる。
func (c *Client) VerifyCredentials(ctx context.Context, clientID, clientSecret string) (string, error) {
	client := withBasicAuth(c.httpClient, clientID, clientSecret)
	tok, err := c.clientCredentials().Token(withTokenClient(ctx, client))
	if err != nil {
		c.logTokenError("クレデンシャルの検証に失敗しました", err)
		return "", fmt.Errorf("%w: verify credentials", ErrUpstreamAuth)
	}
	return tok.AccessToken, nil
}

// ExchangeCode は認可コードをユーザートークンに交換する。
// redirect_uriには認可URLと同じ値が送られる。
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	tok, err := c.exchange.Exchange(withTokenClient(ctx, c.tokenClient), code)
	if err != nil {
		c.logTokenError("認可コードの交換に失敗しました", err)
		return nil, fmt.Errorf("%w: authorization code", ErrUpstreamAuth)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = c.now().Add(defaultTokenLifetime)
	}

	return &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// profileEnvelope は /identity/profile のレスポンス。
// 項目名はcamelCaseとOIDC形式の両方を受け付ける。
type profileEnvelope struct {
	Data *struct {
		ID         string `json:"id"`
		Sub        string `json:"sub"`
		FirstName  string `json:"firstName"`
		GivenName  string `json:"given_name"`
		LastName   string `json:"lastName"`
		FamilyName string `json:"family_name"`
		Email      string `json:"email"`
	} `json:"data"`
}

// FetchProfile はユーザーのアクセストークンでプロフィールを取得する。
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	status, body, err := c.get(ctx, "/identity/profile", nil, accessToken)
	if err != nil {
		c.logger.Warn("プロフィール取得リクエストに失敗しました", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamProfile, err)
	}
	if status < 200 || status > 299 {
		c.logUpstreamError("プロフィール取得がエラーを返しました", "/identity/profile", status, body)
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamProfile, status)
	}

	var env profileEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logUpstreamError("プロフィールのレスポンスを解析できません", "/identity/profile", status, body)
		return nil, fmt.Errorf("%w: invalid json", ErrUpstreamProfile)
	}
	if env.Data == nil {
		c.logUpstreamError("プロフィールのレスポンスにdataがありません", "/identity/profile", status, body)
		return nil, fmt.Errorf("%w: missing data", ErrUpstreamProfile)
	}

	d := env.Data
	return &Profile{
		ID:        firstNonEmpty(d.ID, d.Sub),
		FirstName: firstNonEmpty(d.FirstName, d.GivenName),
		LastName:  firstNonEmpty(d.LastName, d.FamilyName),
		Email:     d.Email,
	}, nil
}

// get はベンダーAPIにGETリクエストを送り、ステータスと本文を返す。
func (c *Client) get(ctx context.Context, path string, query map[string]string, bearer string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) logTokenError(msg string, err error) {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		c.logUpstreamError(msg, "/connect/oauth2/token", re.Response.StatusCode, re.Body)
		return
	}
	c.logger.Warn(msg, slog.String("error", err.Error()))
}

func (c *Client) logUpstreamError(msg, path string, status int, body []byte) {
	c.logger.Warn(msg,
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("body", truncate(string(body), 512)),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate はsを最大nバイトに切り詰める。マルチバイト文字の途中では切らない。
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
