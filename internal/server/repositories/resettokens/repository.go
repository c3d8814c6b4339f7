// Package resettokens stores hashed password reset codes.
package resettokens

import (
	"context"
	"time"
)

// Repository never sees a plaintext code, only its hash.
type Repository interface {
	Create(ctx context.Context, accountID string, codeHash string, createdAt time.Time) (int64, error)

	// Consume marks the matching unused token created after notBefore as used.
	// It returns common.ErrorInvalidOrExpired when no such token exists.
	Consume(ctx context.Context, accountID string, codeHash string, notBefore time.Time) error

	// PurgeStale removes used tokens and tokens created before notBefore.
	PurgeStale(ctx context.Context, notBefore time.Time) (int64, error)
}
