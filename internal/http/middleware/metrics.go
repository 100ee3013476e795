package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/infra/prometheus"
)

// Metrics records request count and latency labelled by route pattern, so
// short codes do not explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if err != nil && asFiberError(err, &fe) {
			status = fe.Code
		}

		route := c.Route().Path
		if status == fiber.StatusNotFound && (route == "" || route == "/") {
			route = "unmatched"
		}
		prometheus.RecordHTTP(c.Method(), route, status, time.Since(start))
		return err
	}
}

func asFiberError(err error, target **fiber.Error) bool {
	return errors.As(err, target)
}
