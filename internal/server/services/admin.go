package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/dbx"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
)

// AdminService manages accounts on behalf of an administrator. The caller is
// expected to have checked the admin role already.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *AdminService {
	return &AdminService{db: db, repomanager: m, logger: l.With("module", "admin_service")}
}

// AccountUpdate holds the fields an admin may change. Nil means unchanged.
type AccountUpdate struct {
	Role     *string
	IsActive *bool
}

func (s *AdminService) List(ctx context.Context) ([]*models.Account, error) {
	return s.repomanager.Accounts(s.db).List(ctx)
}

func (s *AdminService) Get(ctx context.Context, id string) (*models.Account, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}

// Update changes role and active flag of account id. An admin may not
// demote or deactivate themself.
func (s *AdminService) Update(ctx context.Context, actorID, id string, upd AccountUpdate) (*models.Account, error) {
	if upd.Role != nil && *upd.Role != common.RoleUser && *upd.Role != common.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, *upd.Role)
	}
	if sameAccount(actorID, id) {
		if (upd.Role != nil && *upd.Role != common.RoleAdmin) || (upd.IsActive != nil && !*upd.IsActive) {
			return nil, common.ErrorSelfAction
		}
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}

	account, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Account, error) {
		repo := s.repomanager.Accounts(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		role, active := current.Role, current.IsActive
		if upd.Role != nil {
			role = *upd.Role
		}
		if upd.IsActive != nil {
			active = *upd.IsActive
		}
		return repo.UpdateRoleAndStatus(ctx, id, role, active)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account updated", "actor_id", actorID, "account_id", id, "role", account.Role, "is_active", account.IsActive)
	return account, nil
}

// Delete removes account id together with its login and reset tokens.
func (s *AdminService) Delete(ctx context.Context, actorID, id string) error {
	if sameAccount(actorID, id) {
		return common.ErrorSelfAction
	}
	id, ok := canonicalID(id)
	if !ok {
		return common.ErrorNotFound
	}
	if err := s.repomanager.Accounts(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "account deleted", "actor_id", actorID, "account_id", id)
	return nil
}
