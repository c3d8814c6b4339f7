package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/dbx"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/auth"
	"github.com/minimart/storefront/internal/server/mailer"
	"github.com/minimart/storefront/internal/server/otp"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
)

// ErrInvalidRequest is returned by reset verification for an unknown email.
var ErrInvalidRequest = fmt.Errorf("%w: invalid request", common.ErrorValidation)

// PasswordResetService lets a user set a new password with a mailed code.
// Only the SHA-256 hash of a code is stored.
type PasswordResetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codes       otp.Generator
	mail        MailDispatcher
	logger      logging.Logger
	now         clock
}

func NewPasswordResetService(db *sql.DB, m repomanager.RepositoryManager, g otp.Generator, mail MailDispatcher, l logging.Logger) *PasswordResetService {
	return &PasswordResetService{
		db:          db,
		repomanager: m,
		codes:       g,
		mail:        mail,
		logger:      l.With("module", "reset_service"),
		now:         time.Now,
	}
}

// Request mails a reset code when email belongs to an account. The caller
// cannot tell from the result whether it did.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = normaliseEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		s.logger.Error(ctx, "reset request lookup failed", "error", err)
		return nil
	}

	code, err := s.codes.Reset()
	if err != nil {
		s.logger.Error(ctx, "reset code generation failed", "error", err)
		return nil
	}
	if _, err := s.repomanager.ResetTokens(s.db).Create(ctx, account.ID, auth.HashResetCode(code), s.now()); err != nil {
		s.logger.Error(ctx, "reset code not stored", "account_id", account.ID, "error", err)
		return nil
	}

	s.mail.Dispatch(ctx, mailer.ResetCode(account.Username, account.Email, code))
	s.logger.Info(ctx, "reset code issued", "account_id", account.ID)
	return nil
}

// Verify consumes the code and sets the new password in one transaction.
func (s *PasswordResetService) Verify(ctx context.Context, email, code, newPassword string) error {
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, normaliseEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidRequest
		}
		return fmt.Errorf("error loading account: %w", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	codeHash := auth.HashResetCode(strings.ToUpper(normaliseCode(code)))
	notBefore := s.now().Add(-common.ResetCodeTTL)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.ResetTokens(tx).Consume(ctx, account.ID, codeHash, notBefore); err != nil {
			return err
		}
		return s.repomanager.Accounts(tx).UpdatePassword(ctx, account.ID, hash)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset", "account_id", account.ID)
	return nil
}
