package routes

import (
	"github.com/anjiri1684/stuplan/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/avatars/catalog", handlers.GetAvatarCatalog)
}
