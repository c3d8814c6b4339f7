package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/auth"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	aliceID = "7b0f6a0e-3c1f-4d2a-9a57-1f4b7c2d9e01"
	adminID = "c2d4e6f8-1a3b-4c5d-8e7f-9a0b1c2d3e4f"

	aliceToken = "alice-session"
	adminToken = "admin-session"
)

var (
	aliceIdentity = auth.Identity{AccountID: aliceID, Username: "alice", Role: common.RoleUser}
	adminIdentity = auth.Identity{AccountID: adminID, Username: "root", Role: common.RoleAdmin}
)

func alice() *models.Account {
	return &models.Account{ID: aliceID, Username: "alice", Email: "alice@x.com", Role: common.RoleUser, IsActive: true}
}

type fakeRegistration struct {
	requestCode func(ctx context.Context, email string) error
	register    func(ctx context.Context, in services.RegisterInput) (*models.Account, error)
}

func (f *fakeRegistration) RequestCode(ctx context.Context, email string) error {
	if f.requestCode == nil {
		return nil
	}
	return f.requestCode(ctx, email)
}

func (f *fakeRegistration) Register(ctx context.Context, in services.RegisterInput) (*models.Account, error) {
	if f.register == nil {
		return alice(), nil
	}
	return f.register(ctx, in)
}

type fakeLogin struct {
	login    func(ctx context.Context, username, password string) error
	verify   func(ctx context.Context, username, code string) (*services.Session, error)
	sessions map[string]auth.Identity
}

func (f *fakeLogin) Login(ctx context.Context, username, password string) error {
	if f.login == nil {
		return nil
	}
	return f.login(ctx, username, password)
}

func (f *fakeLogin) Verify(ctx context.Context, username, code string) (*services.Session, error) {
	if f.verify == nil {
		return nil, common.ErrorInvalidOrExpired
	}
	return f.verify(ctx, username, code)
}

func (f *fakeLogin) ParseSession(token string) (auth.Identity, error) {
	id, ok := f.sessions[token]
	if !ok {
		return auth.Identity{}, common.ErrInvalidToken
	}
	return id, nil
}

type fakeReset struct {
	request func(ctx context.Context, email string) error
	verify  func(ctx context.Context, email, code, newPassword string) error
}

func (f *fakeReset) Request(ctx context.Context, email string) error {
	if f.request == nil {
		return nil
	}
	return f.request(ctx, email)
}

func (f *fakeReset) Verify(ctx context.Context, email, code, newPassword string) error {
	if f.verify == nil {
		return nil
	}
	return f.verify(ctx, email, code, newPassword)
}

type fakeAccounts struct {
	byID map[string]*models.Account
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

// fakeAdmin keeps accounts in a map and enforces the self-action rules.
type fakeAdmin struct {
	byID map[string]*models.Account
}

func (f *fakeAdmin) List(context.Context) ([]*models.Account, error) {
	out := make([]*models.Account, 0, len(f.byID))
	for _, id := range []string{adminID, aliceID} {
		if a, ok := f.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAdmin) Get(_ context.Context, id string) (*models.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAdmin) Update(_ context.Context, actorID, id string, upd services.AccountUpdate) (*models.Account, error) {
	if actorID == id && ((upd.Role != nil && *upd.Role != common.RoleAdmin) || (upd.IsActive != nil && !*upd.IsActive)) {
		return nil, common.ErrorSelfAction
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Role != nil {
		a.Role = *upd.Role
	}
	if upd.IsActive != nil {
		a.IsActive = *upd.IsActive
	}
	return a, nil
}

func (f *fakeAdmin) Delete(_ context.Context, actorID, id string) error {
	if actorID == id {
		return common.ErrorSelfAction
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// countingLimiter allows limit attempts per key. err is returned alongside
// an allow, like a limiter whose backend is down.
type countingLimiter struct {
	limit  int
	counts map[string]int
	err    error
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, counts: map[string]int{}}
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return true, l.err
	}
	l.counts[key]++
	return l.counts[key] <= l.limit, nil
}

func (l *countingLimiter) Reset(_ context.Context, key string) error {
	delete(l.counts, key)
	return nil
}

type testEnv struct {
	server       *Server
	registration *fakeRegistration
	login        *fakeLogin
	reset        *fakeReset
	accounts     *fakeAccounts
	admin        *fakeAdmin
	limiter      *countingLimiter
	registry     *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := map[string]*models.Account{
		aliceID: alice(),
		adminID: {ID: adminID, Username: "root", Email: "root@x.com", Role: common.RoleAdmin, IsActive: true},
	}
	env := &testEnv{
		registration: &fakeRegistration{},
		login: &fakeLogin{sessions: map[string]auth.Identity{
			aliceToken: aliceIdentity,
			adminToken: adminIdentity,
		}},
		reset:    &fakeReset{},
		accounts: &fakeAccounts{byID: store},
		admin:    &fakeAdmin{byID: store},
		limiter:  newCountingLimiter(100),
		registry: prometheus.NewRegistry(),
	}
	env.server = NewServer(
		Options{SessionTTL: time.Hour},
		Deps{
			Registration: env.registration,
			Login:        env.login,
			Reset:        env.reset,
			Accounts:     env.accounts,
			Admin:        env.admin,
			Limiter:      env.limiter,
			Metrics:      NewMetrics(env.registry),
		},
		logging.Nop{},
	)
	return env
}

type requestOption func(*http.Request)

func withSession(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: token})
	}
}

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (e *testEnv) do(t *testing.T, method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			return c
		}
	}
	return nil
}
