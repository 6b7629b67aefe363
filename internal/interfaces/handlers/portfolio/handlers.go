package portfolio

import (
	"strconv"

	portfoliosvc "portfolio-registry/internal/application/portfolio"
	"portfolio-registry/internal/domain"
	"portfolio-registry/internal/middleware"
	"portfolio-registry/internal/pkg/response"
	"portfolio-registry/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles portfolio handlers.
type Handlers struct {
	Service *portfoliosvc.Service
}

type createPortfolioRequest struct {
	Tokens      []string `json:"tokens"`
	Percentages []uint32 `json:"percentages"`
}

type updateAllocationRequest struct {
	TargetPercentage *uint32 `json:"target_percentage"`
}

type assetView struct {
	domain.AssetAllocation
	TargetPercent string `json:"target_percent"`
}

func parseID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	return id, err == nil
}

func parseSlot(c *fiber.Ctx) (uint32, bool) {
	slot, err := strconv.ParseUint(c.Params("slot"), 10, 32)
	return uint32(slot), err == nil
}

// CreatePortfolio POST /api/v1/portfolios
func (h *Handlers) CreatePortfolio(c *fiber.Ctx) error {
	var req createPortfolioRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Tokens == nil {
		req.Tokens = []string{}
	}
	if req.Percentages == nil {
		req.Percentages = []uint32{}
	}

	id, err := h.Service.Create(c.UserContext(), middleware.GetPrincipal(c), req.Tokens, req.Percentages)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Portfolio created successfully", fiber.Map{"portfolio_id": id}, nil)
}

// GetPortfolio GET /api/v1/portfolios/:id
func (h *Handlers) GetPortfolio(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid portfolio ID", fiber.StatusBadRequest, nil)
	}
	p, found, err := h.Service.GetPortfolio(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	if !found {
		return response.Error(c, "Portfolio not found", fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Portfolio fetched successfully", p, nil)
}

// GetPortfolioAsset GET /api/v1/portfolios/:id/assets/:slot
func (h *Handlers) GetPortfolioAsset(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid portfolio ID", fiber.StatusBadRequest, nil)
	}
	slot, ok := parseSlot(c)
	if !ok {
		return response.Error(c, "Invalid slot index", fiber.StatusBadRequest, nil)
	}
	a, found, err := h.Service.GetPortfolioAsset(c.UserContext(), id, slot)
	if err != nil {
		return response.FromError(c, err)
	}
	if !found {
		return response.Error(c, "Asset not found", fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Asset fetched successfully", assetView{
		AssetAllocation: a,
		TargetPercent:   a.TargetPercent().StringFixed(2),
	}, nil)
}

// UpdateAllocation PATCH /api/v1/portfolios/:id/assets/:slot
func (h *Handlers) UpdateAllocation(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid portfolio ID", fiber.StatusBadRequest, nil)
	}
	slot, ok := parseSlot(c)
	if !ok {
		return response.Error(c, "Invalid slot index", fiber.StatusBadRequest, nil)
	}
	var req updateAllocationRequest
	if err := c.BodyParser(&req); err != nil || req.TargetPercentage == nil {
		return response.Error(c, "target_percentage is required", fiber.StatusBadRequest, nil)
	}

	err := h.Service.UpdateAllocation(c.UserContext(), middleware.GetPrincipal(c), id, slot, *req.TargetPercentage)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Allocation updated successfully", fiber.Map{"updated": true}, nil)
}

// Rebalance POST /api/v1/portfolios/:id/rebalance
func (h *Handlers) Rebalance(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid portfolio ID", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Rebalance(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Portfolio rebalanced", fiber.Map{"rebalanced": true}, nil)
}

// RebalanceAmounts GET /api/v1/portfolios/:id/rebalance-amounts
func (h *Handlers) RebalanceAmounts(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "Invalid portfolio ID", fiber.StatusBadRequest, nil)
	}
	out, err := h.Service.CalculateRebalanceAmounts(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Rebalance eligibility calculated", out, nil)
}

// OwnerPortfolios GET /api/v1/owners/:owner/portfolios
func (h *Handlers) OwnerPortfolios(c *fiber.Ctx) error {
	owner := c.Params("owner")
	if !validation.IsValidPrincipal(owner) {
		return response.Error(c, "Invalid principal", fiber.StatusBadRequest, nil)
	}
	ids, err := h.Service.GetUserPortfolios(c.UserContext(), owner)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Portfolios fetched successfully", fiber.Map{
		"owner":         owner,
		"portfolio_ids": ids,
	}, nil)
}
