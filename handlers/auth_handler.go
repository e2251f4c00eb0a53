package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/stuplan/database"
	"github.com/anjiri1684/stuplan/middleware"
	"github.com/anjiri1684/stuplan/models"
	"github.com/anjiri1684/stuplan/services"
	"github.com/anjiri1684/stuplan/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type WelcomeMailer interface {
	SendWelcome(name, email string)
}

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	accounts  AccountStore
	sessions  *services.SessionRegistry
	mailer    WelcomeMailer
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
}

func NewAuthHandler(accounts AccountStore, sessions *services.SessionRegistry, mailer WelcomeMailer, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		accounts:  accounts,
		sessions:  sessions,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.Validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to hash password"})
	}

	account := &models.Account{
		ID:       uuid.New(),
		Email:    req.Email,
		Password: string(hashedPassword),
		IsActive: true,
	}
	if err := h.accounts.Create(c.UserContext(), account); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "error", "message": "Email already exists"})
		}
		h.log.Error("failed to create account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to create user"})
	}

	userID := account.ID.String()
	token, err := middleware.IssueToken(h.jwtSecret, userID, h.tokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to create token"})
	}

	store := h.sessions.Get(userID)
	if err := store.CreateProfile(c.UserContext(), req.FullName, req.Email); err != nil {
		h.log.Warn("account created without profile", zap.String("user_id", userID), zap.Error(err))
	}

	if h.mailer != nil {
		go h.mailer.SendWelcome(req.FullName, req.Email)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"state": store.State(),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.Validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	account, err := h.accounts.FindByEmail(c.UserContext(), req.Email)
	if err != nil || !account.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid email or password"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid email or password"})
	}

	token, err := middleware.IssueToken(h.jwtSecret, account.ID.String(), h.tokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to create token"})
	}

	return c.JSON(fiber.Map{"token": token})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	h.sessions.End(userID)
	return c.JSON(fiber.Map{"message": "Logged out"})
}
