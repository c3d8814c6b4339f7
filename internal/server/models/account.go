// Package models holds the persisted records of the auth subsystem.
package models

import "time"

// Account is a storefront user. PasswordHash is a bcrypt hash and is never
// serialised.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
