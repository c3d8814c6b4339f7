package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/auth"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/repositories/accounts"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
)

// AccountService is the credential store: it owns password hashing and the
// account lookups every other flow relies on.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *AccountService {
	return &AccountService{db: db, repomanager: m, logger: l.With("module", "account_service")}
}

// NewAccount describes an account to create.
type NewAccount struct {
	Username string
	Email    string
	Password string
	Role     string
	IsActive bool
}

// Create hashes the password and stores the account. Username and email are
// normalised first; duplicates yield accounts.ErrUsernameTaken or
// accounts.ErrEmailTaken.
func (s *AccountService) Create(ctx context.Context, in NewAccount) (*models.Account, error) {
	return createAccount(ctx, s.repomanager.Accounts(s.db), in)
}

func createAccount(ctx context.Context, repo accounts.Repository, in NewAccount) (*models.Account, error) {
	if in.Role == "" {
		in.Role = common.RoleUser
	}
	if in.Role != common.RoleUser && in.Role != common.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, in.Role)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     normaliseUsername(in.Username),
		Email:        normaliseEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     in.IsActive,
	}
	return repo.Create(ctx, account)
}

// VerifyPassword reports whether candidate matches the stored hash.
func (s *AccountService) VerifyPassword(account *models.Account, candidate string) bool {
	return auth.CheckPassword(account.PasswordHash, candidate)
}

// SetPassword re-hashes and overwrites the password of account.
func (s *AccountService) SetPassword(ctx context.Context, account *models.Account, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if err := s.repomanager.Accounts(s.db).UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	account.PasswordHash = hash
	return nil
}

func (s *AccountService) FindByID(ctx context.Context, id string) (*models.Account, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}

func (s *AccountService) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByUsername(ctx, normaliseUsername(username))
}

func (s *AccountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByEmail(ctx, normaliseEmail(email))
}

// EnsureAdmin creates an admin account, or promotes and re-activates an
// existing account with the same username and resets its password.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, email, password string) (*models.Account, bool, error) {
	existing, err := s.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if err := s.SetPassword(ctx, existing, password); err != nil {
			return nil, false, err
		}
		updated, err := s.repomanager.Accounts(s.db).UpdateRoleAndStatus(ctx, existing.ID, common.RoleAdmin, true)
		if err != nil {
			return nil, false, fmt.Errorf("error promoting account: %w", err)
		}
		s.logger.Info(ctx, "account promoted to admin", "account_id", updated.ID)
		return updated, false, nil
	case errors.Is(err, common.ErrorNotFound):
		created, err := s.Create(ctx, NewAccount{
			Username: username, Email: email, Password: password, Role: common.RoleAdmin, IsActive: true,
		})
		if err != nil {
			return nil, false, err
		}
		s.logger.Info(ctx, "admin account created", "account_id", created.ID)
		return created, true, nil
	default:
		return nil, false, err
	}
}
