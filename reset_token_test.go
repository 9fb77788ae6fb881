package auth_test

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/natours-api/go-auth"
)

func TestGenerateResetToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	token, err := auth.GenerateResetToken(now, 10*time.Minute)
	require.NoError(t, err)

	raw, err := hex.DecodeString(token.Plaintext)
	require.NoError(t, err)
	assert.Len(t, raw, auth.ResetTokenBytes)

	assert.Len(t, token.Hash, 64)
	assert.NotEqual(t, token.Plaintext, token.Hash)
	assert.Equal(t, auth.HashResetToken(token.Plaintext), token.Hash)
	assert.True(t, token.ExpiresAt.Equal(now.Add(10*time.Minute)))
}

func TestGenerateResetTokenIsRandom(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 50)
	for i := 0; i < 50; i++ {
		token, err := auth.GenerateResetToken(now, time.Minute)
		require.NoError(t, err)
		_, dup := seen[token.Plaintext]
		require.False(t, dup)
		seen[token.Plaintext] = struct{}{}
	}
}

func TestGenerateResetTokenRejectsNonPositiveTTL(t *testing.T) {
	_, err := auth.GenerateResetToken(time.Now(), 0)
	assert.Error(t, err)
}

func TestHashResetTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, auth.HashResetToken("abc"), auth.HashResetToken("abc"))
	assert.NotEqual(t, auth.HashResetToken("abc"), auth.HashResetToken("abd"))
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", auth.HashResetToken("abc"))
}

func TestVerifyResetToken(t *testing.T) {
	token, err := auth.GenerateResetToken(time.Now(), time.Minute)
	require.NoError(t, err)

	assert.True(t, auth.VerifyResetToken(token.Plaintext, token.Hash))
	assert.False(t, auth.VerifyResetToken(token.Hash, token.Hash))
	assert.False(t, auth.VerifyResetToken("", token.Hash))
}

func TestApplyAndClearResetToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := auth.GenerateResetToken(now, 10*time.Minute)
	require.NoError(t, err)

	user := &auth.User{}
	auth.ApplyResetToken(user, token)

	require.NotNil(t, user.ResetTokenHash)
	assert.Equal(t, token.Hash, *user.ResetTokenHash)
	assert.True(t, user.HasPendingReset(now))
	assert.False(t, user.HasPendingReset(now.Add(10*time.Minute)))

	auth.ClearResetToken(user)
	assert.Nil(t, user.ResetTokenHash)
	assert.Nil(t, user.ResetTokenExpiresAt)
	assert.False(t, user.HasPendingReset(now))
}
