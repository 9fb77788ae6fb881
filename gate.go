package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/natours-api/go-auth/middleware/jwtware"
)

// AuthScheme is the only accepted Authorization header scheme.
const AuthScheme = "Bearer"

// Gate turns a presented token into an Identity and checks roles.
type Gate struct {
	tokens TokenService
	store  CredentialStore
	logger Logger
}

// NewGate builds a Gate.
func NewGate(tokens TokenService, store CredentialStore, logger Logger) *Gate {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Gate{tokens: tokens, store: store, logger: logger}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	token, err := jwtware.FromAuthorizationHeader(header, AuthScheme)
	if err != nil {
		return "", oops.Code(textCodeUnauthorized).Wrap(ErrMissingToken)
	}
	return token, nil
}

// Authenticate verifies token and loads the current state of its subject.
// Every failure matches ErrUnauthenticated. Role and status always come
// from the store, never from the token.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return nil, oops.Code(textCodeUnauthorized).Wrap(ErrMissingToken)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, oops.Code(textCodeUnauthorized).With("subject", claims.UserID).Wrap(ErrInvalidToken)
	}

	user, err := g.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, oops.Code(textCodeUnauthorized).With("user_id", id.String()).Wrap(ErrTokenUserGone)
		}
		g.logger.Error("gate failed to load user %s: %v", id, err)
		return nil, oops.Code(textCodeUnauthorized).With("user_id", id.String()).Wrap(errors.Join(ErrUnauthenticated, err))
	}

	if !user.Active {
		return nil, oops.Code(textCodeUnauthorized).With("user_id", id.String()).Wrap(ErrTokenUserGone)
	}

	if ChangedPasswordAfter(user, claims.IssuedAt) {
		return nil, oops.Code(textCodeUnauthorized).With("user_id", id.String()).Wrap(ErrPasswordChanged)
	}

	return IdentityFromUser(user), nil
}

// Authorize admits identity when its role is listed in allowed. An empty
// allow list admits nobody.
func (g *Gate) Authorize(identity Identity, allowed ...Role) error {
	if identity == nil {
		return oops.Code(textCodeUnauthorized).Wrap(ErrUnauthenticated)
	}
	if !identity.Role().In(allowed...) {
		return oops.Code(textCodeForbidden).
			With("user_id", identity.ID()).
			With("role", identity.Role()).
			Wrap(ErrForbidden)
	}
	return nil
}
