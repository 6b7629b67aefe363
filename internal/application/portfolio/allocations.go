package portfolio

import (
	"errors"
	"fmt"

	"portfolio-registry/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllocationTable owns the PortfolioAssets table keyed by (portfolio id, slot index).
type AllocationTable struct {
	Portfolios PortfolioStore
}

// Set writes a, overwriting any existing row for the same slot. No bounds checks.
func (t AllocationTable) Set(tx *gorm.DB, a *domain.AssetAllocation) error {
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(a).Error; err != nil {
		return fmt.Errorf("set allocation %d/%d: %w", a.PortfolioID, a.SlotIndex, err)
	}
	return nil
}

func (t AllocationTable) Get(tx *gorm.DB, portfolioID uint64, slot uint32) (a domain.AssetAllocation, found bool, err error) {
	err = tx.Where("portfolio_id = ? AND slot_index = ?", portfolioID, slot).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a, false, nil
	}
	if err != nil {
		return a, false, fmt.Errorf("get allocation %d/%d: %w", portfolioID, slot, err)
	}
	return a, true, nil
}

// IsValidSlot reports whether the portfolio exists and slot lies below both MaxSlots and its slot count.
func (t AllocationTable) IsValidSlot(tx *gorm.DB, portfolioID uint64, slot uint32) (bool, error) {
	p, found, err := t.Portfolios.Get(tx, portfolioID)
	if err != nil || !found {
		return false, err
	}
	return slot < domain.MaxSlots && slot < uint32(p.SlotCount), nil
}
