package middleware

import (
	"crypto/subtle"

	"credit-approval/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the pre-shared client key
const APIKeyHeader = "X-API-KEY"

// APIKeyMiddleware checks the X-API-KEY header against the configured keys.
// With no keys configured every request passes.
func APIKeyMiddleware(keys []string) fiber.Handler {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		allowed = append(allowed, []byte(k))
	}

	return func(c *fiber.Ctx) error {
		if len(allowed) == 0 {
			return c.Next()
		}

		key := c.Get(APIKeyHeader)
		if key == "" {
			return response.Unauthorized(c, "API key required")
		}

		for _, k := range allowed {
			if subtle.ConstantTimeCompare([]byte(key), k) == 1 {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Invalid API key")
	}
}
