package protocol

import (
	portfoliosvc "portfolio-registry/internal/application/portfolio"
	"portfolio-registry/internal/domain"
	"portfolio-registry/internal/middleware"
	"portfolio-registry/internal/pkg/response"
	"portfolio-registry/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes protocol administration.
type Handlers struct {
	Service *portfoliosvc.Service
}

type initializeRequest struct {
	NewOwner string `json:"new_owner"`
}

// Info GET /api/v1/protocol
func (h *Handlers) Info(c *fiber.Ctx) error {
	st, err := h.Service.ProtocolInfo(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Protocol state fetched successfully", fiber.Map{
		"protocol_owner":    st.ProtocolOwner,
		"portfolio_counter": st.PortfolioCounter,
		"protocol_fee_bps":  st.ProtocolFeeBps,
		"protocol_fee":      domain.BasisPointsToPercent(st.ProtocolFeeBps).StringFixed(2),
	}, nil)
}

// Initialize POST /api/v1/protocol/initialize
func (h *Handlers) Initialize(c *fiber.Ctx) error {
	var req initializeRequest
	if err := c.BodyParser(&req); err != nil || !validation.IsValidPrincipal(req.NewOwner) {
		return response.Error(c, "new_owner must be a valid principal", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Initialize(c.UserContext(), middleware.GetPrincipal(c), req.NewOwner); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Protocol owner updated", fiber.Map{"protocol_owner": req.NewOwner}, nil)
}
