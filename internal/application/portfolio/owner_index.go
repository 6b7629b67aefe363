package portfolio

import (
	"errors"
	"fmt"

	"portfolio-registry/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OwnerIndex maps an owner to the ids of the portfolios they created.
type OwnerIndex struct{}

// ListFor returns the owner's portfolio ids in creation order, empty when the owner has none.
func (OwnerIndex) ListFor(tx *gorm.DB, owner string) (domain.PortfolioIDs, error) {
	var row domain.UserPortfolios
	err := tx.Where("owner = ?", owner).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.PortfolioIDs{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list portfolios for %s: %w", owner, err)
	}
	if row.PortfolioIDs == nil {
		return domain.PortfolioIDs{}, nil
	}
	return row.PortfolioIDs, nil
}

// Append adds id to the owner's list. It fails with domain.ErrStorageCapacityExceeded once the
// list holds domain.MaxPortfoliosPerOwner ids, leaving the stored list untouched.
func (x OwnerIndex) Append(tx *gorm.DB, owner string, id uint64) error {
	ids, err := x.ListFor(tx, owner)
	if err != nil {
		return err
	}
	ids, err = ids.Append(id)
	if err != nil {
		return err
	}
	row := domain.UserPortfolios{Owner: owner, PortfolioIDs: ids}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("append portfolio %d for %s: %w", id, owner, err)
	}
	return nil
}
