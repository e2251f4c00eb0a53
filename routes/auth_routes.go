package routes

import (
	"github.com/anjiri1684/stuplan/handlers"
	"github.com/anjiri1684/stuplan/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, h *handlers.AuthHandler, jwtSecret string) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/logout", middleware.Protected(jwtSecret), h.Logout)
}
