package handlers

import (
	"errors"

	"github.com/anjiri1684/stuplan/services"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps a profile operation error onto an HTTP status.
func statusFor(err error) int {
	var (
		verr   *services.ValidationError
		remote *services.RemoteError
	)
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrProfileNotLoaded):
		return fiber.StatusConflict
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &remote):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondState(c *fiber.Ctx, state services.ProfileState, err error) error {
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
			"state":   state,
		})
	}
	return c.JSON(state)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": message})
}
