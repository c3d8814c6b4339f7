// Package accounts declares the credential store contract and its PostgreSQL
// implementation.
package accounts

import (
	"context"
	"fmt"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/server/models"
)

// Both wrap common.ErrorAlreadyExists.
var (
	ErrUsernameTaken = fmt.Errorf("username %w", common.ErrorAlreadyExists)
	ErrEmailTaken    = fmt.Errorf("email %w", common.ErrorAlreadyExists)
)

// Repository persists storefront accounts.
type Repository interface {
	// Create inserts the account. A duplicate username or email yields
	// ErrUsernameTaken or ErrEmailTaken.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByID, GetByUsername and GetByEmail return common.ErrorNotFound when
	// no account matches. Comparisons are exact.
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// List returns all accounts, newest first.
	List(ctx context.Context) ([]*models.Account, error)

	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateRoleAndStatus(ctx context.Context, id string, role string, isActive bool) (*models.Account, error)

	// Delete removes the account; its login and reset tokens go with it.
	Delete(ctx context.Context, id string) error
}
