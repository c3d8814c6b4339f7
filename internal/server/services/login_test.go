package services

import (
	"context"
	"testing"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginService(t *testing.T, store *memStore, codes fixedCodes) (*LoginService, *fakeMail, *testClock) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	mail := &fakeMail{}
	cfg := &config.Config{SecretKey: "test-secret", Issuer: "minimart", SessionTTL: time.Hour}
	// Sessions are parsed against the wall clock, so start from now.
	clk := &testClock{t: time.Now()}
	s := NewLoginService(db, &fakeRepoManager{s: store}, codes, mail, cfg, logging.Nop{})
	s.now = clk.Now
	return s, mail, clk
}

func TestLogin_IssuesCode(t *testing.T) {
	store := newMemStore()
	alice := store.addAccount(aliceAccount(t, true))
	s, mail, clk := newLoginService(t, store, fixedCodes{numeric: "123456"})

	require.NoError(t, s.Login(context.Background(), " alice ", alicePassword))

	require.Len(t, store.login, 1)
	assert.Equal(t, alice.ID, store.login[0].AccountID)
	assert.Equal(t, clk.Now().Add(10*time.Minute), store.login[0].ExpiresAt)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"alice@x.com"}, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Body, "Hello alice, your login code is: 123456")
}

func TestLogin_BadCredentials(t *testing.T) {
	store := newMemStore()
	store.addAccount(aliceAccount(t, true))
	s, mail, _ := newLoginService(t, store, fixedCodes{numeric: "123456"})

	require.ErrorIs(t, s.Login(context.Background(), "alice", "wrong"), common.ErrorInvalidCredentials)
	require.ErrorIs(t, s.Login(context.Background(), "nobody", alicePassword), common.ErrorInvalidCredentials)
	assert.Empty(t, store.login)
	assert.Empty(t, mail.sent)
}

func TestLogin_InactiveAccountGetsNoCode(t *testing.T) {
	store := newMemStore()
	store.addAccount(aliceAccount(t, false))
	s, mail, _ := newLoginService(t, store, fixedCodes{numeric: "123456"})

	err := s.Login(context.Background(), "alice", alicePassword)
	require.ErrorIs(t, err, common.ErrorAccountDisabled)
	assert.Empty(t, store.login)
	assert.Empty(t, mail.sent)
}

func TestLogin_InactiveWithWrongPasswordIsBadCredentials(t *testing.T) {
	store := newMemStore()
	store.addAccount(aliceAccount(t, false))
	s, _, _ := newLoginService(t, store, fixedCodes{numeric: "123456"})

	require.ErrorIs(t, s.Login(context.Background(), "alice", "wrong"), common.ErrorInvalidCredentials)
}

func TestLogin_StoreError(t *testing.T) {
	store := newMemStore()
	store.addAccount(aliceAccount(t, true))
	store.errs["login.Create"] = errBoom{}
	s, mail, _ := newLoginService(t, store, fixedCodes{numeric: "123456"})

	require.ErrorIs(t, s.Login(context.Background(), "alice", alicePassword), errBoom{})
	assert.Empty(t, mail.sent)
}

func TestVerify_IssuesSessionOnce(t *testing.T) {
	store := newMemStore()
	alice := store.addAccount(aliceAccount(t, true))
	s, _, clk := newLoginService(t, store, fixedCodes{numeric: "123456"})
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "alice", alicePassword))

	sess, err := s.Verify(ctx, "alice", " 123456 ")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, clk.Now().Add(time.Hour), sess.ExpiresAt)
	assert.Equal(t, alice.ID, sess.Account.ID)

	id, err := s.ParseSession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id.AccountID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, common.RoleUser, id.Role)

	_, err = s.Verify(ctx, "alice", "123456")
	require.ErrorIs(t, err, common.ErrorInvalidOrExpired)
}

func TestVerify_EachCodeIsIndependent(t *testing.T) {
	store := newMemStore()
	store.addAccount(aliceAccount(t, true))
	s, _, _ := newLoginService(t, store, fixedCodes{numeric: "111111"})
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "alice", alicePassword))
	s.codes = fixedCodes{numeric: "222222"}
	require.NoError(t, s.Login(ctx, "alice", alicePassword))

	_, err := s.Verify(ctx, "alice", "111111")
	require.NoError(t, err)
	_, err = s.Verify(ctx, "alice", "222222")
	require.NoError(t, err)
}

func TestVerify_Expired(t *testing.T) {
	store := newMemStore()
	store.addAccount(aliceAccount(t, true))
	s, _, clk := newLoginService(t, store, fixedCodes{numeric: "123456"})

	require.NoError(t, s.Login(context.Background(), "alice", alicePassword))
	clk.Advance(10*time.Minute + time.Second)

	_, err := s.Verify(context.Background(), "alice", "123456")
	require.ErrorIs(t, err, common.ErrorInvalidOrExpired)
}

func TestVerify_UnknownUser(t *testing.T) {
	s, _, _ := newLoginService(t, newMemStore(), fixedCodes{numeric: "123456"})

	_, err := s.Verify(context.Background(), "ghost", "123456")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVerify_DisabledAfterCodeWasSent(t *testing.T) {
	store := newMemStore()
	alice := store.addAccount(aliceAccount(t, true))
	s, _, _ := newLoginService(t, store, fixedCodes{numeric: "123456"})

	require.NoError(t, s.Login(context.Background(), "alice", alicePassword))
	store.accounts[alice.ID].IsActive = false

	_, err := s.Verify(context.Background(), "alice", "123456")
	require.ErrorIs(t, err, common.ErrorAccountDisabled)
}

func TestVerify_RoleInSessionIsRoleAtIssuance(t *testing.T) {
	store := newMemStore()
	alice := store.addAccount(aliceAccount(t, true))
	s, _, _ := newLoginService(t, store, fixedCodes{numeric: "123456"})
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "alice", alicePassword))
	sess, err := s.Verify(ctx, "alice", "123456")
	require.NoError(t, err)

	store.accounts[alice.ID].Role = common.RoleAdmin

	id, err := s.ParseSession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, common.RoleUser, id.Role)
}

func TestParseSession_Invalid(t *testing.T) {
	s, _, _ := newLoginService(t, newMemStore(), fixedCodes{})
	_, err := s.ParseSession("garbage")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
