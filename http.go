package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/natours-api/go-auth/middleware/jwtware"
)

// Protect admits any authenticated, active user whose password has not
// changed since the token was issued.
func (a *Auther) Protect() fiber.Handler {
	return a.Guard()
}

// RestrictTo admits only the listed roles. It authenticates on its own so
// it can be mounted without Protect in front of it.
func (a *Auther) RestrictTo(roles ...Role) fiber.Handler {
	// never nil, so an empty list admits nobody
	return a.guard(append([]Role{}, roles...))
}

// Guard runs the access pipeline for roles. No roles means any role.
func (a *Auther) Guard(roles ...Role) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Runner:          a.pipeline.For(roles...),
		ContextKey:      IdentityLocalsKey,
		ContextEnricher: enrichIdentityContext,
	})
}

func (a *Auther) guard(allowed []Role) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Runner:          boundPipeline{pipeline: a.pipeline, allowed: allowed},
		ContextKey:      IdentityLocalsKey,
		ContextEnricher: enrichIdentityContext,
	})
}

// ErrorHandler renders errors as {"status": "fail"|"error", "message": ...}.
// Internal errors never leak their detail to the client.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return func(c *fiber.Ctx, err error) error {
		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return c.Status(ferr.Code).JSON(errorEnvelope(ferr.Code, ferr.Message))
		}

		status, message := Classify(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("%s %s failed: %+v", c.Method(), c.Path(), err)
		} else {
			logger.Debug("%s %s rejected: %v", c.Method(), c.Path(), err)
		}
		return c.Status(status).JSON(errorEnvelope(status, message))
	}
}

func errorEnvelope(status int, message string) fiber.Map {
	label := "fail"
	if status >= fiber.StatusInternalServerError {
		label = "error"
	}
	return fiber.Map{
		"status":  label,
		"message": message,
	}
}
