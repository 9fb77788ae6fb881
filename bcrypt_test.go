package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/natours-api/go-auth"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, auth.ErrValidation)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = hasher.Compare(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestBcryptHasherSaltsEveryHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("pass1234")
	require.NoError(t, err)
	second, err := hasher.Hash("pass1234")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, hasher.Compare("pass1234", first))
	assert.NoError(t, hasher.Compare("pass1234", second))
}

func TestComparePasswordAndHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("testPassword123!")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantAuth bool
		wantErr  bool
	}{
		{name: "matching password", password: "testPassword123!", hash: hash},
		{name: "wrong password", password: "wrongPassword123!", hash: hash, wantErr: true, wantAuth: true},
		{name: "empty password", password: "", hash: hash, wantErr: true, wantAuth: true},
		{name: "malformed digest", password: "testPassword123!", hash: "not-a-bcrypt-hash", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hasher.Compare(tt.password, tt.hash)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, errors.Is(err, auth.ErrAuth))
			if tt.wantAuth {
				assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
			}
		})
	}
}

func TestBcryptHasherUsesConfiguredCost(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost + 1)
	assert.Equal(t, bcrypt.MinCost+1, hasher.Cost())

	hash, err := hasher.Hash("pass1234")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestBcryptHasherZeroCostFallsBackToDefault(t *testing.T) {
	hasher := auth.NewBcryptHasher(0)
	assert.GreaterOrEqual(t, hasher.Cost(), bcrypt.MinCost)
	assert.LessOrEqual(t, hasher.Cost(), auth.DefaultHashCost)
}
