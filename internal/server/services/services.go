// Package services contains the server-side business logic of the auth
// subsystem: registration, two-step login, password reset and account
// administration.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minimart/storefront/internal/server/mailer"
)

// MailDispatcher hands a message over for asynchronous delivery.
// *mailer.Dispatcher satisfies it.
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg mailer.Message)
}

// clock is overridden in tests.
type clock func() time.Time

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normaliseUsername(username string) string {
	return strings.TrimSpace(username)
}

func normaliseCode(code string) string {
	return strings.TrimSpace(code)
}

// canonicalID parses id as a uuid and returns its canonical lower-case form.
// Ids that cannot be account ids are filtered out before they reach the uuid
// column.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// sameAccount reports whether two ids name the same account in any of the
// spellings uuid.Parse accepts.
func sameAccount(a, b string) bool {
	ca, ok := canonicalID(a)
	if !ok {
		return false
	}
	cb, ok := canonicalID(b)
	return ok && ca == cb
}
