package middleware

import (
	"strings"

	"portfolio-registry/internal/pkg/response"
	"portfolio-registry/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// PrincipalHeader carries the caller identity, already authenticated upstream.
const PrincipalHeader = "X-Principal"

const principalLocal = "principal"

// Principal copies the caller identity from PrincipalHeader into Locals. A malformed identity is rejected
// with 400; a missing one is left empty for RequireAuth to decide.
func Principal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := strings.TrimSpace(c.Get(PrincipalHeader))
		if p == "" {
			return c.Next()
		}
		if !validation.IsValidPrincipal(p) {
			return response.Error(c, "Invalid principal", fiber.StatusBadRequest, nil)
		}
		c.Locals(principalLocal, p)
		return c.Next()
	}
}

// RequireAuth ensures a caller identity is present. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetPrincipal(c) == "" {
			return response.Unauthorized(c)
		}
		return c.Next()
	}
}

// GetPrincipal returns the caller identity ("" when anonymous).
func GetPrincipal(c *fiber.Ctx) string {
	p, _ := c.Locals(principalLocal).(string)
	return p
}
