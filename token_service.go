package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the session lifetime used when none is configured.
const DefaultTokenTTL = 90 * 24 * time.Hour

// TokenServiceImpl implements the TokenService interface with HS256 JWTs
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	clock      Clock
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, clock Clock, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defaultLogger()
	}
	if clock == nil {
		clock = SystemClock
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		clock:      clock,
		logger:     logger,
	}
}

// Issue signs a token for userID stamped with the current clock time.
func (ts *TokenServiceImpl) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", oops.Code(textCodeInternal).Errorf("token subject must not be empty")
	}

	now := ts.clock.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", oops.Code(textCodeInternal).With("user_id", userID).Wrapf(err, "failed to sign JWT")
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry. Any failure is
// reported as ErrExpiredToken or ErrInvalidToken, never as a partial result.
func (ts *TokenServiceImpl) Verify(raw string) (*SessionClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, oops.Code(textCodeToken).Wrap(ErrInvalidToken)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.clock.Now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token verify encountered unexpected signing method %v", t.Header["alg"])
			return nil, ErrInvalidToken
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(textCodeToken).Wrap(ErrExpiredToken)
		}
		return nil, oops.Code(textCodeToken).With("cause", err.Error()).Wrap(ErrInvalidToken)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, oops.Code(textCodeToken).Wrap(ErrInvalidToken)
	}

	return &SessionClaims{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
