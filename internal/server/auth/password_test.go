package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	bcryptCost = bcrypt.MinCost
	t.Cleanup(func() { bcryptCost = bcrypt.DefaultCost })

	h, err := HashPassword("S3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cret!", h)
	assert.True(t, strings.HasPrefix(h, "$2a$"))

	assert.True(t, CheckPassword(h, "S3cret!"))
	assert.False(t, CheckPassword(h, "s3cret!"))
	assert.False(t, CheckPassword("not-a-hash", "S3cret!"))
}

func TestHashPassword_Salted(t *testing.T) {
	bcryptCost = bcrypt.MinCost
	t.Cleanup(func() { bcryptCost = bcrypt.DefaultCost })

	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashResetCode(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashResetCode("abc"))
	assert.Len(t, HashResetCode("K7MZQ4PX2B"), 64)
	assert.NotEqual(t, HashResetCode("K7MZQ4PX2B"), HashResetCode("K7MZQ4PX2C"))
}
