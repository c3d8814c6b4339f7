// Package otp generates the one-time codes mailed to users.
package otp

import (
	"fmt"

	"github.com/minimart/storefront/internal/common"
)

const (
	NumericLength = 6
	ResetLength   = 10

	// ResetAlphabet is A-Z and 2-9 without I, O, 0 and 1.
	ResetAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Generator produces codes. It is an interface so services can be tested with
// predictable codes.
type Generator interface {
	Numeric() (string, error)
	Reset() (string, error)
}

type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Numeric returns a six digit code, uniform over 000000-999999.
func (RandomGenerator) Numeric() (string, error) {
	code, err := common.RandomDigits(NumericLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}

// Reset returns a ten character code over ResetAlphabet.
func (RandomGenerator) Reset() (string, error) {
	code, err := common.RandomString(ResetLength, ResetAlphabet)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return code, nil
}
