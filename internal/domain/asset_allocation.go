package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetAllocation is one slot of a portfolio (PortfolioAssets map), keyed by (portfolio_id, slot_index).
type AssetAllocation struct {
	PortfolioID      uint64    `gorm:"column:portfolio_id;primaryKey;autoIncrement:false" json:"portfolio_id"`
	SlotIndex        uint32    `gorm:"column:slot_index;primaryKey;autoIncrement:false" json:"slot_index"`
	TargetPercentage uint32    `gorm:"column:target_percentage;not null" json:"target_percentage"`
	CurrentAmount    uint64    `gorm:"column:current_amount;not null" json:"current_amount"`
	TokenAddress     string    `gorm:"column:token_address;type:varchar(256);not null" json:"token_address"`
	CreatedAt        time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (AssetAllocation) TableName() string {
	return "PortfolioAssets"
}

// TargetPercent renders the basis point target as a percentage, e.g. 5000 -> 50.
func (a *AssetAllocation) TargetPercent() decimal.Decimal {
	return BasisPointsToPercent(a.TargetPercentage)
}

// BasisPointsToPercent converts basis points to a percentage with two decimal places.
func BasisPointsToPercent(bps uint32) decimal.Decimal {
	return decimal.New(int64(bps), -2)
}
