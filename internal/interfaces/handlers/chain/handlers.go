package chain

import (
	"errors"

	chainsvc "portfolio-registry/internal/chain"
	"portfolio-registry/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers exposes the logical clock.
type Handlers struct {
	Clock chainsvc.Clock
}

type advanceRequest struct {
	Blocks uint64 `json:"blocks"`
}

// Height GET /api/v1/chain/height
func (h *Handlers) Height(c *fiber.Ctx) error {
	height, err := h.Clock.Height(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Block height fetched successfully", fiber.Map{"height": height}, nil)
}

// Advance POST /api/v1/chain/advance. Only clocks that can be moved by hand support it.
func (h *Handlers) Advance(c *fiber.Ctx) error {
	adv, ok := h.Clock.(chainsvc.Advancer)
	if !ok {
		return response.Error(c, "Clock cannot be advanced", fiber.StatusConflict, nil)
	}
	var req advanceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	height, err := adv.Advance(c.UserContext(), req.Blocks)
	if errors.Is(err, chainsvc.ErrZeroAdvance) || errors.Is(err, chainsvc.ErrAdvanceTooLarge) {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	if err != nil {
		return response.FromError(c, err)
	}
	log.Ctx(c.UserContext()).Info().Uint64("blocks", req.Blocks).Uint64("height", height).Msg("block height advanced")
	return response.Success(c, "Block height advanced", fiber.Map{"height": height}, nil)
}
