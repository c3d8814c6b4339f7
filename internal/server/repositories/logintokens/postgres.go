package logintokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, accountID string, code string, expiresAt time.Time) (int64, error) {
	query := `
		INSERT INTO login_tokens (account_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, accountID, code, expiresAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// Consume removes a single matching row in one statement, so two concurrent
// verifications of the same code cannot both succeed.
func (r *PostgresRepository) Consume(ctx context.Context, accountID string, code string, now time.Time) error {
	query := `
		DELETE FROM login_tokens
		WHERE id = (
			SELECT id FROM login_tokens
			WHERE account_id = $1 AND code = $2 AND expires_at > $3
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, accountID, code, now).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorInvalidOrExpired
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM login_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
