package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS allows the configured web client origin. An empty origin allows any.
func CORS(origin string) fiber.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, Authorization, X-Link-Password, Stripe-Signature")
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")
		if origin != "*" {
			c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
