// Package common defines shared constants and sentinel errors used across
// the storefront server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Credential errors.
	ErrorInvalidCredentials = errors.New("invalid username or password")
	ErrorAccountDisabled    = errors.New("account is disabled")

	// One-time code errors. The message is shared by every kind of code and
	// does not say whether the code was wrong, expired or already used.
	ErrorInvalidOrExpired = errors.New("invalid or expired code")

	// Admin errors.
	ErrorSelfAction = errors.New("self action not allowed")

	// Throttling.
	ErrorTooManyAttempts = errors.New("too many attempts")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
