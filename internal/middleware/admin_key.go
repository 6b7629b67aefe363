package middleware

import (
	"portfolio-registry/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the operator key for maintenance routes.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey checks AdminKeyHeader against a bcrypt hash. An empty hash disables the route (403).
func RequireAdminKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(AdminKeyHeader)
		if hash == "" || key == "" {
			return response.Error(c, "Forbidden", fiber.StatusForbidden, nil)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			return response.Error(c, "Forbidden", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
