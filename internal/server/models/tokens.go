package models

import "time"

// RegistrationToken proves ownership of an email before an account exists.
// There is at most one per email.
type RegistrationToken struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// LoginToken is the second factor of a password login. An account may hold
// several at once; each is deleted when used.
type LoginToken struct {
	ID        int64
	AccountID string
	Code      string
	ExpiresAt time.Time
}

// ResetToken authorises a password change. Only the SHA-256 hash of the code
// is kept, and Used never goes back to false.
type ResetToken struct {
	ID        int64
	AccountID string
	CodeHash  string
	CreatedAt time.Time
	Used      bool
}
