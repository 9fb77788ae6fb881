package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// IdentityLocalsKey is the fiber locals key the access middleware stores
// the authenticated Identity under.
const IdentityLocalsKey = "user"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the Identity in the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// IdentityFromFiber returns the Identity stored by the access middleware.
func IdentityFromFiber(c *fiber.Ctx) (Identity, bool) {
	if raw, ok := c.Locals(IdentityLocalsKey).(Identity); ok {
		return raw, true
	}
	return IdentityFromContext(c.UserContext())
}

func enrichIdentityContext(ctx context.Context, principal any) context.Context {
	if identity, ok := principal.(Identity); ok {
		return WithIdentity(ctx, identity)
	}
	return ctx
}
