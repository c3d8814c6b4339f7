package common

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"

// RandomDigits returns a string of n decimal digits drawn uniformly from
// crypto/rand. Leading zeros are kept, so "007711" is a valid result.
func RandomDigits(n int) (string, error) {
	return RandomString(n, digits)
}

// RandomString returns n characters drawn uniformly from alphabet.
func RandomString(n int, alphabet string) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// WipeByteArray overwrites b with zeros. Used for passwords read from a
// terminal once they are no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
