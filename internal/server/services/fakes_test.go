package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/dbx"
	"github.com/minimart/storefront/internal/server/mailer"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/repositories/accounts"
	"github.com/minimart/storefront/internal/server/repositories/logintokens"
	"github.com/minimart/storefront/internal/server/repositories/registrationtokens"
	"github.com/minimart/storefront/internal/server/repositories/resettokens"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixedCodes struct {
	numeric string
	reset   string
	err     error
}

func (f fixedCodes) Numeric() (string, error) { return f.numeric, f.err }
func (f fixedCodes) Reset() (string, error)   { return f.reset, f.err }

type fakeMail struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (f *fakeMail) Dispatch(_ context.Context, msg mailer.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
}

// --- in-memory store ---

// memStore mimics the PostgreSQL repositories closely enough to run whole
// flows: unique usernames and emails, consume-once codes and cascading
// deletes. errs injects a failure per operation name.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	reg      map[string]models.RegistrationToken
	login    []models.LoginToken
	reset    []models.ResetToken
	nextID   int64
	errs     map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		reg:      map[string]models.RegistrationToken{},
		errs:     map[string]error{},
	}
}

func (s *memStore) fail(op string) error { return s.errs[op] }

func (s *memStore) addAccount(a models.Account) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := a
	s.accounts[a.ID] = &cp
	return &cp
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.Create"); err != nil {
		return nil, err
	}
	for _, ex := range r.s.accounts {
		if ex.Username == a.Username {
			return nil, accounts.ErrUsernameTaken
		}
		if ex.Email == a.Email {
			return nil, accounts.ErrEmailTaken
		}
	}
	a.CreatedAt = time.Now()
	cp := *a
	r.s.accounts[a.ID] = &cp
	return a, nil
}

func (r memAccounts) find(op string, match func(*models.Account) bool) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(op); err != nil {
		return nil, err
	}
	for _, a := range r.s.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return r.find("accounts.GetByID", func(a *models.Account) bool { return a.ID == id })
}

func (r memAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return r.find("accounts.GetByUsername", func(a *models.Account) bool { return a.Username == username })
}

func (r memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find("accounts.GetByEmail", func(a *models.Account) bool { return a.Email == email })
}

func (r memAccounts) List(context.Context) ([]*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.List"); err != nil {
		return nil, err
	}
	out := make([]*models.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memAccounts) UpdatePassword(_ context.Context, id string, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.UpdatePassword"); err != nil {
		return err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (r memAccounts) UpdateRoleAndStatus(_ context.Context, id string, role string, active bool) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.UpdateRoleAndStatus"); err != nil {
		return nil, err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	a.Role, a.IsActive = role, active
	cp := *a
	return &cp, nil
}

func (r memAccounts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.accounts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.accounts, id)

	login := r.s.login[:0]
	for _, t := range r.s.login {
		if t.AccountID != id {
			login = append(login, t)
		}
	}
	r.s.login = login

	reset := r.s.reset[:0]
	for _, t := range r.s.reset {
		if t.AccountID != id {
			reset = append(reset, t)
		}
	}
	r.s.reset = reset
	return nil
}

type memRegistration struct{ s *memStore }

func (r memRegistration) Upsert(_ context.Context, email, code string, exp time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("registration.Upsert"); err != nil {
		return err
	}
	r.s.reg[email] = models.RegistrationToken{Email: email, Code: code, ExpiresAt: exp}
	return nil
}

func (r memRegistration) Consume(_ context.Context, email, code string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("registration.Consume"); err != nil {
		return err
	}
	t, ok := r.s.reg[email]
	if !ok || t.Code != code || !now.Before(t.ExpiresAt) {
		return common.ErrorInvalidOrExpired
	}
	delete(r.s.reg, email)
	return nil
}

func (r memRegistration) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("registration.PurgeExpired"); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range r.s.reg {
		if !now.Before(t.ExpiresAt) {
			delete(r.s.reg, k)
			n++
		}
	}
	return n, nil
}

type memLogin struct{ s *memStore }

func (r memLogin) Create(_ context.Context, accountID, code string, exp time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("login.Create"); err != nil {
		return 0, err
	}
	r.s.nextID++
	r.s.login = append(r.s.login, models.LoginToken{ID: r.s.nextID, AccountID: accountID, Code: code, ExpiresAt: exp})
	return r.s.nextID, nil
}

func (r memLogin) Consume(_ context.Context, accountID, code string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("login.Consume"); err != nil {
		return err
	}
	for i, t := range r.s.login {
		if t.AccountID == accountID && t.Code == code && now.Before(t.ExpiresAt) {
			r.s.login = append(r.s.login[:i], r.s.login[i+1:]...)
			return nil
		}
	}
	return common.ErrorInvalidOrExpired
}

func (r memLogin) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.login[:0]
	var n int64
	for _, t := range r.s.login {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		} else {
			n++
		}
	}
	r.s.login = kept
	return n, nil
}

type memReset struct{ s *memStore }

func (r memReset) Create(_ context.Context, accountID, codeHash string, created time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("reset.Create"); err != nil {
		return 0, err
	}
	r.s.nextID++
	r.s.reset = append(r.s.reset, models.ResetToken{ID: r.s.nextID, AccountID: accountID, CodeHash: codeHash, CreatedAt: created})
	return r.s.nextID, nil
}

func (r memReset) Consume(_ context.Context, accountID, codeHash string, notBefore time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("reset.Consume"); err != nil {
		return err
	}
	for i := range r.s.reset {
		t := &r.s.reset[i]
		if t.AccountID == accountID && t.CodeHash == codeHash && !t.Used && t.CreatedAt.After(notBefore) {
			t.Used = true
			return nil
		}
	}
	return common.ErrorInvalidOrExpired
}

func (r memReset) PurgeStale(_ context.Context, notBefore time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.reset[:0]
	var n int64
	for _, t := range r.s.reset {
		if t.Used || !t.CreatedAt.After(notBefore) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.s.reset = kept
	return n, nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return memAccounts{m.s} }

func (m *fakeRepoManager) RegistrationTokens(dbx.DBTX) registrationtokens.Repository {
	return memRegistration{m.s}
}

func (m *fakeRepoManager) LoginTokens(dbx.DBTX) logintokens.Repository { return memLogin{m.s} }

func (m *fakeRepoManager) ResetTokens(dbx.DBTX) resettokens.Repository { return memReset{m.s} }
