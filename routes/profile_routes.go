package routes

import (
	"github.com/anjiri1684/stuplan/handlers"
	"github.com/anjiri1684/stuplan/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, h *handlers.ProfileHandler, jwtSecret string) {
	api := app.Group("/api/v1")

	profile := api.Group("/profile", middleware.Protected(jwtSecret))
	profile.Get("/me", h.GetMyProfile)
	profile.Put("/me", h.UpdateMyProfile)
	profile.Get("/me/state", h.GetState)
	profile.Delete("/me/status", h.ClearStatus)
	profile.Get("/me/avatar", h.GetMyAvatar)
	profile.Post("/me/avatar", h.UploadAvatar)
	profile.Put("/me/avatar/category", h.SelectAvatarCategory)
	profile.Get("/:userId", h.GetProfile)
}
