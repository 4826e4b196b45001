package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/middleware"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:     fiber.StatusNotFound,
	apperr.KindInvalidState: fiber.StatusBadRequest,
	apperr.KindForbidden:    fiber.StatusForbidden,
	apperr.KindConflict:     fiber.StatusConflict,
	apperr.KindValidation:   fiber.StatusBadRequest,
	apperr.KindExternal:     fiber.StatusBadGateway,
}

// StatusFor maps an error onto an HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if status, ok := kindStatus[apperr.KindOf(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every failure as {"success": false, "error": msg}.
// Internal errors are logged and their details hidden.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		message := err.Error()
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err)
			if status == fiber.StatusInternalServerError {
				message = "internal server error"
			}
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
	}
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return userID, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Query(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
