package crypto_test

import (
	"testing"

	"taskman/pkg/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := crypto.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hashed)

	assert.NoError(t, crypto.CheckPassword(hashed, "hunter22"))
	assert.Error(t, crypto.CheckPassword(hashed, "hunter23"))
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := crypto.HashPassword("same-input")
	require.NoError(t, err)
	second, err := crypto.HashPassword("same-input")
	require.NoError(t, err)

	// bcrypt salts every hash, identical inputs must not collide
	assert.NotEqual(t, first, second)
}
