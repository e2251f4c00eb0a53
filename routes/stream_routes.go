package routes

import (
	"github.com/anjiri1684/stuplan/handlers"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func StreamRoutes(app *fiber.App, h *handlers.StreamHandler) {
	api := app.Group("/api/v1")

	api.Use("/ws", h.Upgrade)
	api.Get("/ws", websocket.New(h.Serve))
}
