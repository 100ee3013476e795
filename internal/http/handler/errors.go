package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/gate"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"go.uber.org/zap"
)

// errorMapping binds a sentinel to its HTTP status and machine-readable code.
// An empty message echoes the error text.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first match wins.
var errorTable = []errorMapping{
	{target: gate.ErrPremiumRequired, status: fiber.StatusForbidden, code: "PREMIUM_REQUIRED"},
	{target: service.ErrQuotaExceeded, status: fiber.StatusForbidden, code: "QUOTA_EXCEEDED"},

	{target: service.ErrInvalidURL, status: fiber.StatusBadRequest, code: "INVALID_URL"},
	{target: service.ErrInvalidAlias, status: fiber.StatusBadRequest, code: "INVALID_ALIAS"},
	{target: service.ErrReservedAlias, status: fiber.StatusBadRequest, code: "RESERVED_ALIAS"},
	{target: service.ErrInvalidExpiry, status: fiber.StatusBadRequest, code: "INVALID_EXPIRY"},
	{target: service.ErrInvalidPassword, status: fiber.StatusBadRequest, code: "INVALID_PASSWORD"},
	{target: service.ErrInvalidProfile, status: fiber.StatusBadRequest, code: "INVALID_PROFILE"},
	{target: service.ErrInvalidPlan, status: fiber.StatusBadRequest, code: "INVALID_PLAN"},
	{target: service.ErrVerificationRequired, status: fiber.StatusBadRequest, code: "VERIFICATION_REQUIRED"},
	{target: service.ErrVerificationFailed, status: fiber.StatusBadRequest, code: "VERIFICATION_FAILED"},
	{target: service.ErrNoSubscription, status: fiber.StatusBadRequest, code: "NO_SUBSCRIPTION"},
	{target: service.ErrInvalidSignature, status: fiber.StatusBadRequest, code: "INVALID_SIGNATURE", message: "webhook signature verification failed"},

	{target: service.ErrInvalidCredentials, status: fiber.StatusUnauthorized, code: "INVALID_CREDENTIALS"},
	{target: service.ErrPasswordRequired, status: fiber.StatusUnauthorized, code: "PASSWORD_REQUIRED"},
	{target: service.ErrPasswordMismatch, status: fiber.StatusUnauthorized, code: "PASSWORD_MISMATCH"},

	{target: repository.ErrLinkNotFound, status: fiber.StatusNotFound, code: "NOT_FOUND", message: "short link not found"},
	{target: repository.ErrAccountNotFound, status: fiber.StatusNotFound, code: "NOT_FOUND", message: "account not found"},

	{target: service.ErrAliasTaken, status: fiber.StatusConflict, code: "ALIAS_TAKEN"},
	{target: service.ErrEmailTaken, status: fiber.StatusConflict, code: "EMAIL_TAKEN"},
	{target: repository.ErrDuplicate, status: fiber.StatusConflict, code: "CONFLICT", message: "resource already exists"},

	{target: service.ErrLinkExpired, status: fiber.StatusGone, code: "LINK_EXPIRED"},

	{target: service.ErrProviderUnavailable, status: fiber.StatusBadGateway, code: "PROVIDER_UNAVAILABLE", message: "upstream provider unavailable, try again later"},
}

func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// writeError answers err with its mapped status. Unmapped errors are logged
// and answered with a generic 500.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	m, ok := lookupError(err)
	if !ok {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
			"code":  "INTERNAL",
		})
	}

	if m.status == fiber.StatusBadGateway {
		logger.Warn("upstream provider failed", zap.String("path", c.Path()), zap.Error(err))
	}

	message := m.message
	if message == "" {
		message = err.Error()
	}
	body := fiber.Map{
		"error": message,
		"code":  m.code,
	}

	if service.IsUpsell(err) {
		body["upgrade"] = true
		if denied := gate.Denied(err); len(denied) > 0 {
			body["denied"] = denied
		}
	}
	if errors.Is(err, service.ErrPasswordRequired) {
		body["passwordRequired"] = true
	}

	return c.Status(m.status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  "BAD_REQUEST",
	})
}
