package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/pantryplus/internal/auth"
	"github.com/hitoshi/pantryplus/internal/middleware"
	"github.com/hitoshi/pantryplus/internal/model"
	"github.com/hitoshi/pantryplus/internal/user"
)

// --- 認証サービス ---

type mockAuthService struct {
	authorizationURLFn func(state string) string
	handleCallbackFn   func(ctx context.Context, code string) (*auth.CallbackResult, error)
	validateFn         func(ctx context.Context, u *model.User) (*model.User, error)
	profileFn          func(ctx context.Context, u *model.User) (*model.User, error)
	logoutFn           func(ctx context.Context, sessionID, userID string) error

	logoutCalls []logoutCall
}

type logoutCall struct {
	sessionID string
	userID    string
}

func (m *mockAuthService) AuthorizationURL(state string) string {
	if m.authorizationURLFn != nil {
		return m.authorizationURLFn(state)
	}
	return "https://kroger.test/authorize?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*auth.CallbackResult, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Validate(ctx context.Context, u *model.User) (*model.User, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, u)
	}
	return u, nil
}

func (m *mockAuthService) Profile(ctx context.Context, u *model.User) (*model.User, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, u)
	}
	return u, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID, userID string) error {
	m.logoutCalls = append(m.logoutCalls, logoutCall{sessionID: sessionID, userID: userID})
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID, userID)
	}
	return nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(s *model.Session) (string, error) {
	return "signed:" + s.ID, nil
}

// --- ユーザー・店舗（実サービス + インメモリリポジトリ） ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUserRepo) FindByVendorID(ctx context.Context, vendorID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.VendorID == vendorID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) Upsert(ctx context.Context, u *model.User) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.users[u.ID]
	r.users[u.ID] = u
	return u, !exists, nil
}

type memLocationRepo struct {
	mu        sync.Mutex
	locations map[string]*model.Location
}

func (r *memLocationRepo) Replace(ctx context.Context, l *model.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locations == nil {
		r.locations = make(map[string]*model.Location)
	}
	copied := *l
	r.locations[l.UserID] = &copied
	return nil
}

func (r *memLocationRepo) FindByUserID(ctx context.Context, userID string) (*model.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locations[userID], nil
}

var (
	alice = &model.User{ID: "local-alice", VendorID: "kroger-alice", FirstName: "Alice", Email: "alice@example.com"}
	bob   = &model.User{ID: "local-bob", VendorID: "kroger-bob", FirstName: "Bob"}
)

func newUserService() *user.Service {
	return user.NewService(newMemUserRepo(alice, bob), &memLocationRepo{})
}

// --- カート ---

type mockCartService struct {
	addItemFn   func(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error)
	listItemsFn func(ctx context.Context, userID string) ([]model.Product, error)
}

func (m *mockCartService) AddItem(ctx context.Context, userID string, snapshot model.ProductSnapshot, quantity int) (*model.CartItem, error) {
	if m.addItemFn != nil {
		return m.addItemFn(ctx, userID, snapshot, quantity)
	}
	return &model.CartItem{ID: "item-1", UserID: userID, Quantity: quantity}, nil
}

func (m *mockCartService) ListItems(ctx context.Context, userID string) ([]model.Product, error) {
	if m.listItemsFn != nil {
		return m.listItemsFn(ctx, userID)
	}
	return []model.Product{}, nil
}

// --- Kroger ---

type mockCatalog struct {
	searchProductsFn  func(ctx context.Context, term, locationID string) (json.RawMessage, error)
	searchLocationsFn func(ctx context.Context, zipCode string, radius int) (json.RawMessage, error)
}

func (m *mockCatalog) SearchProducts(ctx context.Context, term, locationID string) (json.RawMessage, error) {
	if m.searchProductsFn != nil {
		return m.searchProductsFn(ctx, term, locationID)
	}
	return json.RawMessage(`{"data":[]}`), nil
}

func (m *mockCatalog) SearchLocations(ctx context.Context, zipCode string, radius int) (json.RawMessage, error) {
	if m.searchLocationsFn != nil {
		return m.searchLocationsFn(ctx, zipCode, radius)
	}
	return json.RawMessage(`{"data":[]}`), nil
}

type mockCredentials struct {
	appTokenFn func(ctx context.Context) (string, error)
	verifyFn   func(ctx context.Context, clientID, clientSecret string) (string, error)
}

func (m *mockCredentials) AppToken(ctx context.Context) (string, error) {
	if m.appTokenFn != nil {
		return m.appTokenFn(ctx)
	}
	return "app-token-0123456789", nil
}

func (m *mockCredentials) VerifyCredentials(ctx context.Context, clientID, clientSecret string) (string, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, clientID, clientSecret)
	}
	return "verified-token", nil
}

type mockCredentialsStore struct {
	saveFn func(clientID, clientSecret string) error
	saved  [][2]string
}

func (m *mockCredentialsStore) SaveKrogerCredentials(clientID, clientSecret string) error {
	if m.saveFn != nil {
		if err := m.saveFn(clientID, clientSecret); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, [2]string{clientID, clientSecret})
	return nil
}

// --- ヘルパー ---

// withSession はリクエストにセッションのユーザーIDとセッションIDを注入する。
func withSession(req *http.Request, u *model.User) *http.Request {
	return req.WithContext(middleware.ContextWithSession(req.Context(), u.ID, "sess-"+u.ID))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
