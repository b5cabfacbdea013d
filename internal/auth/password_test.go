package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	BcryptCost = bcrypt.MinCost
}

func TestHashPassword(t *testing.T) {
	t.Run("Hash password successfully", func(t *testing.T) {
		hash, err := HashPassword("secret")
		require.NoError(t, err)
		assert.NotEqual(t, "secret", hash)
		assert.NoError(t, VerifyPassword("secret", hash))
	})

	t.Run("Hash is salted", func(t *testing.T) {
		h1, err := HashPassword("secret")
		require.NoError(t, err)
		h2, err := HashPassword("secret")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("Short passwords are accepted", func(t *testing.T) {
		hash, err := HashPassword("x")
		require.NoError(t, err)
		assert.NoError(t, VerifyPassword("x", hash))
	})

	t.Run("Empty password is rejected", func(t *testing.T) {
		_, err := HashPassword("")
		assert.ErrorIs(t, err, ErrEmptyPassword)
	})

	t.Run("Password over 72 bytes is rejected", func(t *testing.T) {
		_, err := HashPassword(strings.Repeat("x", MaxPasswordLength+1))
		assert.ErrorIs(t, err, ErrPasswordTooLong)

		hash, err := HashPassword(strings.Repeat("x", MaxPasswordLength))
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
	})

	t.Run("Hash uses configured cost", func(t *testing.T) {
		hash, err := HashPassword("secret")
		require.NoError(t, err)
		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, BcryptCost, cost)
	})
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Stérilisation-2025")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  bool
	}{
		{"correct password", "Stérilisation-2025", hash, false},
		{"wrong password", "sterilisation-2025", hash, true},
		{"empty password", "", hash, true},
		{"invalid hash", "Stérilisation-2025", "not-a-hash", true},
		{"empty hash", "Stérilisation-2025", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(tt.password, tt.hash)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, s1, 64)

	s2, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}
