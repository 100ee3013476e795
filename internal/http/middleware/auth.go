package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/model"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"go.uber.org/zap"
)

const accountKey = "account"

// TokenValidator returns the account id carried by a bearer token.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Auth resolves bearer tokens into accounts.
type Auth struct {
	tokens   TokenValidator
	accounts service.AccountGetter
	logger   *zap.Logger
}

// NewAuth returns an Auth middleware factory.
func NewAuth(tokens TokenValidator, accounts service.AccountGetter, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{tokens: tokens, accounts: accounts, logger: logger}
}

// Required rejects requests without a valid token with 401.
func (a *Auth) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, err := a.resolve(c)
		if err != nil {
			return err
		}
		if account == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authorized, token missing or invalid",
			})
		}
		c.Locals(accountKey, account)
		return c.Next()
	}
}

// Optional attaches the account when a valid token is present and otherwise
// continues anonymously.
func (a *Auth) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, err := a.resolve(c)
		if err != nil {
			return err
		}
		if account != nil {
			c.Locals(accountKey, account)
		}
		return c.Next()
	}
}

// resolve returns nil without error when the request carries no usable token.
func (a *Auth) resolve(c *fiber.Ctx) (*model.Account, error) {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return nil, nil
	}

	id, err := a.tokens.Validate(token)
	if err != nil {
		return nil, nil
	}

	account, err := a.accounts.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil
		}
		a.logger.Error("failed to load account for token", zap.String("account_id", id), zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	return account, nil
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AccountFrom returns the authenticated account, or nil for anonymous requests.
func AccountFrom(c *fiber.Ctx) *model.Account {
	account, _ := c.Locals(accountKey).(*model.Account)
	return account
}
