package repomanager

import (
	"context"
	"database/sql"

	"github.com/minimart/storefront/internal/dbx"
	"github.com/minimart/storefront/internal/server/repositories/accounts"
	"github.com/minimart/storefront/internal/server/repositories/logintokens"
	"github.com/minimart/storefront/internal/server/repositories/registrationtokens"
	"github.com/minimart/storefront/internal/server/repositories/resettokens"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so services can compose several stores in one unit of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RegistrationTokens(db dbx.DBTX) registrationtokens.Repository
	LoginTokens(db dbx.DBTX) logintokens.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
