// Package registrationtokens stores the email verification codes issued
// before an account exists.
package registrationtokens

import (
	"context"
	"time"
)

type Repository interface {
	// Upsert replaces any pending code for email.
	Upsert(ctx context.Context, email string, code string, expiresAt time.Time) error

	// Consume deletes the code for email if it matches and has not expired.
	// Otherwise it returns common.ErrorInvalidOrExpired and leaves the row alone.
	Consume(ctx context.Context, email string, code string, now time.Time) error

	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
