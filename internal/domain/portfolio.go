package domain

import "time"

const (
	// MaxSlots is the number of allocation slots a portfolio may hold.
	MaxSlots = 10
	// MaxBasisPoints is 100% expressed in basis points.
	MaxBasisPoints = 10000
	// ProtocolFeeBps is recorded in protocol state; nothing charges it.
	ProtocolFeeBps = 25
)

// Portfolio is one registry entry (Portfolios map). Heights are logical block heights, not wall clock.
type Portfolio struct {
	ID                   uint64    `gorm:"column:portfolio_id;primaryKey;autoIncrement:false" json:"portfolio_id"`
	Owner                string    `gorm:"column:owner;type:varchar(128);not null;index" json:"owner"`
	CreatedAtHeight      uint64    `gorm:"column:created_at_height;not null" json:"created_at_height"`
	LastRebalancedHeight uint64    `gorm:"column:last_rebalanced_height;not null" json:"last_rebalanced_height"`
	TotalValue           uint64    `gorm:"column:total_value;not null" json:"total_value"`
	Active               bool      `gorm:"column:active;not null" json:"active"`
	SlotCount            uint8     `gorm:"column:slot_count;not null" json:"token_count"`
	CreatedAt            time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Portfolio) TableName() string {
	return "Portfolios"
}

// OwnedBy reports whether principal owns the portfolio.
func (p *Portfolio) OwnedBy(principal string) bool {
	return p.Owner == principal
}
