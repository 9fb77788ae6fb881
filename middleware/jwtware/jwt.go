package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

// Runner drives one request through authentication and authorization and
// calls dispatch with the resolved principal when access is granted.
// This mirrors the access pipeline from the auth package without importing it.
type Runner interface {
	Run(ctx context.Context, authorization string, dispatch func(ctx context.Context, principal any) error) error
}

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Runner is required
	Runner     Runner
	ContextKey string
	// Header is read verbatim and handed to the Runner. Only the header
	// transport is supported.
	Header string
	// ContextEnricher propagates the principal to the request's user context.
	ContextEnricher func(ctx context.Context, principal any) context.Context
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		err := cfg.Runner.Run(c.UserContext(), c.Get(cfg.Header), func(ctx context.Context, principal any) error {
			c.Locals(cfg.ContextKey, principal)
			if cfg.ContextEnricher != nil {
				ctx = cfg.ContextEnricher(ctx, principal)
			}
			c.SetUserContext(ctx)
			return cfg.SuccessHandler(c)
		})
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		return nil
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.Runner == nil {
		panic("AUTH: JWT middleware configuration: Runner is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.Header == "" {
		cfg.Header = fiber.HeaderAuthorization
	}

	return cfg
}

// FromAuthorizationHeader extracts the token from a "<scheme> <token>"
// header value. The scheme match is case insensitive.
func FromAuthorizationHeader(value, authScheme string) (string, error) {
	authScheme = strings.TrimSpace(authScheme)
	l := len(authScheme)
	if l == 0 {
		return "", ErrJWTMissingOrMalformed
	}
	if len(value) > l+1 && strings.EqualFold(value[:l], authScheme) && value[l] == ' ' {
		if token := strings.TrimSpace(value[l:]); token != "" {
			return token, nil
		}
	}
	return "", ErrJWTMissingOrMalformed
}
