package handlers

import (
	"strings"

	"github.com/anjiri1684/stuplan/middleware"
	"github.com/anjiri1684/stuplan/models"
	"github.com/anjiri1684/stuplan/services"
	"github.com/anjiri1684/stuplan/utils"
	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

const maxAvatarBytes = 10 << 20

type ProfileHandler struct {
	sessions *services.SessionRegistry
}

func NewProfileHandler(sessions *services.SessionRegistry) *ProfileHandler {
	return &ProfileHandler{sessions: sessions}
}

func (h *ProfileHandler) store(c *fiber.Ctx) (*services.ProfileStateStore, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	return h.sessions.Get(userID), nil
}

// ownStore returns the caller's store with the caller's own profile held,
// loading it first when the session has none or holds another user's.
func (h *ProfileHandler) ownStore(c *fiber.Ctx) (*services.ProfileStateStore, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	store := h.sessions.Get(userID)
	if p := store.State().Profile; p == nil || p.UserID != userID {
		if err := store.LoadProfile(c.UserContext(), ""); err != nil {
			return store, err
		}
	}
	return store, nil
}

func (h *ProfileHandler) GetMyProfile(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return err
	}
	err = store.LoadProfile(c.UserContext(), "")
	return respondState(c, store.State(), err)
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return err
	}
	err = store.LoadProfile(c.UserContext(), fiberutils.CopyString(c.Params("userId")))
	return respondState(c, store.State(), err)
}

func (h *ProfileHandler) UpdateMyProfile(c *fiber.Ctx) error {
	store, err := h.ownStore(c)
	if err != nil {
		return ownStoreError(c, store, err)
	}

	var req models.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if req.Empty() {
		return badRequest(c, "No profile fields supplied")
	}

	err = store.UpdateProfile(c.UserContext(), req)
	return respondState(c, store.State(), err)
}

type selectAvatarRequest struct {
	Category string `json:"category" validate:"required"`
}

func (h *ProfileHandler) SelectAvatarCategory(c *fiber.Ctx) error {
	store, err := h.ownStore(c)
	if err != nil {
		return ownStoreError(c, store, err)
	}

	var req selectAvatarRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return badRequest(c, "category is required")
	}

	err = store.SelectAvatarCategory(c.UserContext(), strings.TrimSpace(req.Category))
	return respondState(c, store.State(), err)
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	store, err := h.ownStore(c)
	if err != nil {
		return ownStoreError(c, store, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "Image file is required.")
	}
	if file.Size > maxAvatarBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"status": "error", "message": "Image must be 10MB or smaller."})
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return badRequest(c, "Only image uploads are accepted.")
	}

	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Cannot read image file.")
	}
	defer src.Close()

	err = store.UploadAvatarImage(c.UserContext(), file.Filename, src)
	return respondState(c, store.State(), err)
}

func (h *ProfileHandler) GetMyAvatar(c *fiber.Ctx) error {
	store, err := h.ownStore(c)
	if err != nil {
		return ownStoreError(c, store, err)
	}

	p := store.State().Profile
	return c.JSON(utils.AvatarFor(p.UserID, p.DisplayName, p.AvatarRef))
}

func (h *ProfileHandler) GetState(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return err
	}
	return c.JSON(store.State())
}

func (h *ProfileHandler) ClearStatus(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return err
	}
	store.ClearStatus()
	return c.JSON(store.State())
}

func ownStoreError(c *fiber.Ctx, store *services.ProfileStateStore, err error) error {
	if store == nil {
		return err
	}
	return respondState(c, store.State(), err)
}
