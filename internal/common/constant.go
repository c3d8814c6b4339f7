package common

import "time"

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "access_token_cookie"

// Validity windows of the one-time codes. They are fixed and are not
// configurable per call.
const (
	RegistrationCodeTTL = 10 * time.Minute
	LoginCodeTTL        = 10 * time.Minute
	ResetCodeTTL        = 15 * time.Minute
)

// Roles known to the storefront.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
