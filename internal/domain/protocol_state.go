package domain

import "time"

// protocolStateID is the primary key of the single ProtocolState row.
const protocolStateID = 1

// ProtocolState holds the registry scalars: the portfolio counter and the protocol owner.
type ProtocolState struct {
	ID               uint      `gorm:"column:id;primaryKey;autoIncrement:false" json:"-"`
	PortfolioCounter uint64    `gorm:"column:portfolio_counter;not null" json:"portfolio_counter"`
	ProtocolOwner    string    `gorm:"column:protocol_owner;type:varchar(128);not null" json:"protocol_owner"`
	ProtocolFeeBps   uint32    `gorm:"column:protocol_fee_bps;not null" json:"protocol_fee_bps"`
	UpdatedAt        time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ProtocolState) TableName() string {
	return "ProtocolState"
}

// NewProtocolState returns the initial state for a fresh registry owned by owner.
func NewProtocolState(owner string) ProtocolState {
	return ProtocolState{
		ID:             protocolStateID,
		ProtocolOwner:  owner,
		ProtocolFeeBps: ProtocolFeeBps,
	}
}
