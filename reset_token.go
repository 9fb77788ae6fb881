package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

const (
	// ResetTokenBytes is the entropy of a reset token before hex encoding.
	ResetTokenBytes = 32
	// DefaultResetTokenTTL is how long a reset token stays usable.
	DefaultResetTokenTTL = 10 * time.Minute
)

// ResetToken is a freshly minted reset secret. Plaintext only leaves the
// process through the Dispatcher, Hash is what gets persisted.
type ResetToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// GenerateResetToken mints a token valid for ttl from now.
func GenerateResetToken(now time.Time, ttl time.Duration) (ResetToken, error) {
	if ttl <= 0 {
		return ResetToken{}, oops.Code(textCodeInternal).With("ttl", ttl).Errorf("reset token ttl must be positive")
	}

	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, oops.Code(textCodeInternal).Wrapf(err, "failed to read random bytes")
	}

	plaintext := hex.EncodeToString(buf)
	return ResetToken{
		Plaintext: plaintext,
		Hash:      HashResetToken(plaintext),
		ExpiresAt: now.Add(ttl).UTC(),
	}, nil
}

// HashResetToken returns the hex encoded SHA-256 digest of token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyResetToken compares token against a stored hash in constant time.
func VerifyResetToken(token, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashResetToken(token)), []byte(hash)) == 1
}

// ApplyResetToken stores the hash and expiry of token on user, replacing
// any earlier pending token.
func ApplyResetToken(user *User, token ResetToken) {
	hash := token.Hash
	expires := token.ExpiresAt
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &expires
}

// ClearResetToken removes any pending reset token from user.
func ClearResetToken(user *User) {
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
}
