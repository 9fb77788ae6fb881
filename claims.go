package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the signed payload of a session token. It carries only the
// subject and registered time claims; role and status are read fresh from
// the credential store on every request.
type JWTClaims struct {
	jwt.RegisteredClaims
}

// SessionClaims is the verified view of a session token.
type SessionClaims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
