package httpapi

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/minimart/storefront/internal/common"
)

// Each payload trims its text fields before validation so that a value made
// only of spaces counts as missing.

type emailPayload struct {
	Email string `json:"email"`
}

func (p *emailPayload) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	return validation.ValidateStruct(p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

// resetRequestPayload only insists on a value: a malformed address gets the
// same answer as an unknown one.
type resetRequestPayload struct {
	Email string `json:"email"`
}

func (p *resetRequestPayload) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	return validation.ValidateStruct(p,
		validation.Field(&p.Email, validation.Required),
	)
}

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

func (p *registerPayload) Validate() error {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)
	p.Token = strings.TrimSpace(p.Token)
	return validation.ValidateStruct(p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
		validation.Field(&p.Token, validation.Required),
	)
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p *loginPayload) Validate() error {
	p.Username = strings.TrimSpace(p.Username)
	return validation.ValidateStruct(p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

type loginVerifyPayload struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (p *loginVerifyPayload) Validate() error {
	p.Username = strings.TrimSpace(p.Username)
	p.Token = strings.TrimSpace(p.Token)
	return validation.ValidateStruct(p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Token, validation.Required),
	)
}

type resetVerifyPayload struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (p *resetVerifyPayload) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	p.Token = strings.TrimSpace(p.Token)
	return validation.ValidateStruct(p,
		validation.Field(&p.Email, validation.Required),
		validation.Field(&p.Token, validation.Required),
		validation.Field(&p.NewPassword, validation.Required),
	)
}

// accountPatchPayload leaves a field untouched when it is absent.
type accountPatchPayload struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (p *accountPatchPayload) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Role, validation.NilOrNotEmpty, validation.In(common.RoleUser, common.RoleAdmin)),
	)
}
