// Package logintokens declares the repository contract for the second-factor
// codes issued after a password login.
package logintokens

import (
	"context"
	"time"
)

// Repository stores login codes per account.
type Repository interface {
	// Create stores a new code for accountID that is valid until expiresAt and
	// returns the row id. Earlier codes of the same account stay valid.
	Create(ctx context.Context, accountID string, code string, expiresAt time.Time) (int64, error)

	// Consume deletes one matching unexpired code. When nothing matches it
	// returns common.ErrorInvalidOrExpired.
	Consume(ctx context.Context, accountID string, code string, now time.Time) error

	// PurgeExpired removes codes that expired before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
