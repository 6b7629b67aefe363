package response

import (
	"errors"

	"portfolio-registry/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StatusFor maps a registry error to its HTTP status.
func StatusFor(re *domain.RegistryError) int {
	switch {
	case errors.Is(re, domain.ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(re, domain.ErrInvalidPortfolio):
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadRequest
	}
}

// FromError writes a registry error with its code and name in details; any other error becomes a 500.
func FromError(c *fiber.Ctx, err error) error {
	if re, ok := domain.AsRegistryError(err); ok {
		return Error(c, re.Message, StatusFor(re), fiber.Map{
			"code": re.Code,
			"name": re.Name,
		})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
