package registrationtokens

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

func (r *PostgresRepository) Upsert(ctx context.Context, email string, code string, expiresAt time.Time) error {
	query := `
		INSERT INTO registration_tokens (email, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.ExecContext(ctx, query, email, code, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, email string, code string, now time.Time) error {
	query := `
		DELETE FROM registration_tokens
		WHERE email = $1 AND code = $2 AND expires_at > $3
		RETURNING email
	`
	var got string
	if err := r.db.QueryRowContext(ctx, query, email, code, now).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorInvalidOrExpired
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registration_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
