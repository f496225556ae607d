package accounts

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// NewErrorHandler builds the fiber error handler. Operational errors
// render their message directly; anything unexpected is logged and, in
// production, replaced with a generic message so internals never leak.
// Development mode surfaces full detail instead.
func NewErrorHandler(cfg *Config, logger Logger) fiber.ErrorHandler {
	development := cfg.IsDevelopment()

	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := err.Error()
		operational := false

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			status = statusFromError(richErr)
			message = richErr.Message
			operational = true
		} else if fiberErr, ok := err.(*fiber.Error); ok {
			// Framework-raised conditions (body too large, bad
			// method) are safe to disclose as-is.
			status = fiberErr.Code
			message = fiberErr.Message
			operational = true
		}

		if development {
			return c.Status(status).JSON(fiber.Map{
				"status":  statusLabel(status),
				"error":   fmt.Sprintf("%+v", err),
				"message": message,
				"stack":   string(debug.Stack()),
			})
		}

		if !operational {
			logger.Error("unexpected error", "path", c.OriginalURL(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Something went very wrong!",
			})
		}

		return c.Status(status).JSON(fiber.Map{
			"status":  statusLabel(status),
			"message": message,
		})
	}
}

// NotFoundHandler answers every unmatched route.
func NotFoundHandler(c *fiber.Ctx) error {
	return goerrors.New(
		fmt.Sprintf("Can't find %s on this server!", c.OriginalURL()),
		goerrors.CategoryNotFound,
	).WithCode(goerrors.CodeNotFound)
}

// statusFromError prefers an explicit code, falling back to the
// category taxonomy.
func statusFromError(err *goerrors.Error) int {
	if err.Code > 0 {
		return err.Code
	}

	switch err.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation, goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// statusLabel mirrors the response envelope convention: "fail" for
// client errors, "error" otherwise.
func statusLabel(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}
