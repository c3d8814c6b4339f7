package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, accountID string, codeHash string, createdAt time.Time) (int64, error) {
	query := `
		INSERT INTO reset_tokens (account_id, code_hash, created_at, used)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, accountID, codeHash, createdAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// Consume flips used in a single conditional UPDATE; a concurrent second
// attempt finds used = TRUE and matches nothing.
func (r *PostgresRepository) Consume(ctx context.Context, accountID string, codeHash string, notBefore time.Time) error {
	query := `
		UPDATE reset_tokens SET used = TRUE
		WHERE id = (
			SELECT id FROM reset_tokens
			WHERE account_id = $1 AND code_hash = $2 AND used = FALSE AND created_at > $3
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND used = FALSE
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, accountID, codeHash, notBefore).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorInvalidOrExpired
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PurgeStale(ctx context.Context, notBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reset_tokens WHERE used = TRUE OR created_at <= $1`, notBefore)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
