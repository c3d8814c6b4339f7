package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/dbx"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/mailer"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/otp"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
)

// RegistrationService proves ownership of an email with a mailed code before
// the account is created.
type RegistrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codes       otp.Generator
	mail        MailDispatcher
	logger      logging.Logger
	now         clock
}

func NewRegistrationService(db *sql.DB, m repomanager.RepositoryManager, g otp.Generator, mail MailDispatcher, l logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:          db,
		repomanager: m,
		codes:       g,
		mail:        mail,
		logger:      l.With("module", "registration_service"),
		now:         time.Now,
	}
}

// RequestCode issues a fresh code for email, replacing any pending one, and
// mails it.
func (s *RegistrationService) RequestCode(ctx context.Context, email string) error {
	email = normaliseEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	code, err := s.codes.Numeric()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	expiresAt := s.now().Add(common.RegistrationCodeTTL)
	if err := s.repomanager.RegistrationTokens(s.db).Upsert(ctx, email, code, expiresAt); err != nil {
		return fmt.Errorf("error storing registration code: %w", err)
	}

	s.mail.Dispatch(ctx, mailer.RegistrationCode(email, code))
	s.logger.Info(ctx, "registration code issued")
	return nil
}

// RegisterInput is a registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Code     string
}

// Register consumes the code and creates an active user account in one
// transaction. If the account cannot be created the code stays valid.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	email := normaliseEmail(in.Email)
	code := normaliseCode(in.Code)

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Account, error) {
		if err := s.repomanager.RegistrationTokens(tx).Consume(ctx, email, code, s.now()); err != nil {
			return nil, err
		}

		account, err := createAccount(ctx, s.repomanager.Accounts(tx), NewAccount{
			Username: in.Username,
			Email:    email,
			Password: in.Password,
			Role:     common.RoleUser,
			IsActive: true,
		})
		if err != nil {
			return nil, err
		}

		s.logger.Info(ctx, "account registered", "account_id", account.ID)
		return account, nil
	})
}
