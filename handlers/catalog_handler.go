package handlers

import (
	"github.com/anjiri1684/stuplan/models"
	"github.com/anjiri1684/stuplan/utils"
	"github.com/gofiber/fiber/v2"
)

type avatarCategory struct {
	Tag   string `json:"tag"`
	Glyph string `json:"glyph"`
}

// GetAvatarCatalog lists the values a client may offer in its profile editor.
func GetAvatarCatalog(c *fiber.Ctx) error {
	categories := make([]avatarCategory, 0, len(utils.AvatarCategories()))
	for _, tag := range utils.AvatarCategories() {
		categories = append(categories, avatarCategory{Tag: tag, Glyph: utils.CategoryGlyph(tag)})
	}

	return c.JSON(fiber.Map{
		"categories":      categories,
		"palette":         utils.Palette(),
		"academic_levels": models.AcademicLevels,
	})
}
