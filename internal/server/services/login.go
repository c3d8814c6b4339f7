package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/auth"
	"github.com/minimart/storefront/internal/server/config"
	"github.com/minimart/storefront/internal/server/mailer"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/otp"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
)

// dummyHash is compared against when the username is unknown so that a
// missing account costs as much time as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("minimart-dummy-password")
	return h
})

// Session is a signed session token and the account it was issued for.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *models.Account
}

// LoginService implements the two-step login: password first, then a mailed
// code, then a session.
type LoginService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codes       otp.Generator
	mail        MailDispatcher
	logger      logging.Logger
	now         clock

	secretKey  []byte
	issuer     string
	sessionTTL time.Duration
}

func NewLoginService(db *sql.DB, m repomanager.RepositoryManager, g otp.Generator, mail MailDispatcher,
	cfg *config.Config, l logging.Logger) *LoginService {
	return &LoginService{
		db:          db,
		repomanager: m,
		codes:       g,
		mail:        mail,
		logger:      l.With("module", "login_service"),
		now:         time.Now,
		secretKey:   []byte(cfg.SecretKey),
		issuer:      cfg.Issuer,
		sessionTTL:  cfg.SessionTTL,
	}
}

// Login checks the password and, for an active account, mails a login code.
// A disabled account gets common.ErrorAccountDisabled and no code.
func (s *LoginService) Login(ctx context.Context, username, password string) error {
	account, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, normaliseUsername(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.CheckPassword(dummyHash(), password)
			return common.ErrorInvalidCredentials
		}
		return fmt.Errorf("error loading account: %w", err)
	}

	if !auth.CheckPassword(account.PasswordHash, password) {
		return common.ErrorInvalidCredentials
	}
	if !account.IsActive {
		return common.ErrorAccountDisabled
	}

	code, err := s.codes.Numeric()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if _, err := s.repomanager.LoginTokens(s.db).Create(ctx, account.ID, code, s.now().Add(common.LoginCodeTTL)); err != nil {
		return fmt.Errorf("error storing login code: %w", err)
	}

	s.mail.Dispatch(ctx, mailer.LoginCode(account.Username, account.Email, code))
	s.logger.Info(ctx, "login code issued", "account_id", account.ID)
	return nil
}

// Verify consumes a login code and issues a session carrying the current
// role. An unknown username yields common.ErrorNotFound.
func (s *LoginService) Verify(ctx context.Context, username, code string) (*Session, error) {
	account, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, normaliseUsername(username))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repomanager.LoginTokens(s.db).Consume(ctx, account.ID, normaliseCode(code), now); err != nil {
		return nil, err
	}

	// The account may have been disabled after the code was mailed.
	if !account.IsActive {
		return nil, common.ErrorAccountDisabled
	}

	token, err := auth.GenerateToken(auth.Identity{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
	}, s.secretKey, s.issuer, s.sessionTTL, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "session issued", "account_id", account.ID, "role", account.Role)
	return &Session{Token: token, ExpiresAt: now.Add(s.sessionTTL), Account: account}, nil
}

// ParseSession validates a session token issued by Verify.
func (s *LoginService) ParseSession(token string) (auth.Identity, error) {
	claims, err := auth.ParseToken(token, s.secretKey, s.issuer)
	if err != nil {
		return auth.Identity{}, err
	}
	return claims.Identity(), nil
}
