package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
)

// PurgeResult counts removed rows per token kind.
type PurgeResult struct {
	Registration int64
	Login        int64
	Reset        int64
}

// MaintenanceService removes one-time codes that can no longer be used.
// Expired rows never verify, so purging only reclaims space.
type MaintenanceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         clock
}

func NewMaintenanceService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *MaintenanceService {
	return &MaintenanceService{db: db, repomanager: m, logger: l.With("module", "maintenance"), now: time.Now}
}

func (s *MaintenanceService) PurgeTokens(ctx context.Context) (PurgeResult, error) {
	now := s.now()
	var res PurgeResult
	var err error

	if res.Registration, err = s.repomanager.RegistrationTokens(s.db).PurgeExpired(ctx, now); err != nil {
		return res, err
	}
	if res.Login, err = s.repomanager.LoginTokens(s.db).PurgeExpired(ctx, now); err != nil {
		return res, err
	}
	if res.Reset, err = s.repomanager.ResetTokens(s.db).PurgeStale(ctx, now.Add(-common.ResetCodeTTL)); err != nil {
		return res, err
	}

	s.logger.Info(ctx, "tokens purged", "registration", res.Registration, "login", res.Login, "reset", res.Reset)
	return res, nil
}
