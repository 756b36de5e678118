package api

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RegisterMiddlewares attaches request timeout, logging and error handling.
func RegisterMiddlewares(app *fiber.App, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(requestLogger())
	app.Use(errorHandlingMiddleware())
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
		return err
	}
}

func errorHandlingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("Panic recovered")
				err = NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				apiErr := toError(err)
				if apiErr.HTTPStatus >= 500 {
					log.Error().Err(apiErr).Str("path", c.Path()).Msg("Request failed")
				}
				c.Status(apiErr.HTTPStatus)
				_ = c.JSON(fiber.Map{"error": apiErr})
				err = nil
			}
		}()
		return c.Next()
	}
}
