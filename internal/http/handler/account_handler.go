package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"github.com/sifan077/ShortcutURL/internal/http/middleware"
	"go.uber.org/zap"
)

// AccountDeps groups dependencies required by the account API.
type AccountDeps struct {
	Logger   *zap.Logger
	Accounts service.AccountService
}

// AccountHandler implements the /api/users endpoints.
type AccountHandler struct {
	logger   *zap.Logger
	accounts service.AccountService
}

// NewAccountHandler creates an account handler with the provided dependencies.
func NewAccountHandler(deps AccountDeps) *AccountHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{
		logger:   logger,
		accounts: deps.Accounts,
	}
}

// Register wires account routes onto router.
func (h *AccountHandler) Register(router fiber.Router, auth *middleware.Auth) {
	users := router.Group("/users")
	{
		users.Post("/", h.SignUp)
		users.Post("/login", h.Login)
		users.Get("/profile", auth.Required(), h.Profile)
		users.Put("/profile", auth.Required(), h.UpdateProfile)
		users.Delete("/profile", auth.Required(), h.Delete)
		users.Get("/stats", auth.Required(), h.Stats)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/users
func (h *AccountHandler) SignUp(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, token, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	h.logger.Info("account registered", zap.String("account_id", account.ID))
	return c.Status(fiber.StatusCreated).JSON(newAccountResponse(account, token))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/users/login
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	account, token, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(newAccountResponse(account, token))
}

// Profile handles GET /api/users/profile
func (h *AccountHandler) Profile(c *fiber.Ctx) error {
	return c.JSON(newAccountResponse(middleware.AccountFrom(c), ""))
}

type profileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UpdateProfile handles PUT /api/users/profile
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := h.accounts.UpdateProfile(c.UserContext(), middleware.AccountFrom(c).ID, service.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(newAccountResponse(account, ""))
}

// Delete handles DELETE /api/users/profile. The account's links go with it.
func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	id := middleware.AccountFrom(c).ID
	if err := h.accounts.Delete(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, err)
	}
	h.logger.Info("account deleted", zap.String("account_id", id))
	return c.JSON(fiber.Map{"message": "account removed"})
}

// Stats handles GET /api/users/stats
func (h *AccountHandler) Stats(c *fiber.Ctx) error {
	totals, err := h.accounts.Stats(c.UserContext(), middleware.AccountFrom(c).ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(totals)
}
