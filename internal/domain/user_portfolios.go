package domain

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MaxPortfoliosPerOwner bounds an owner's index entry.
const MaxPortfoliosPerOwner = 20

// PortfolioIDs is an owner's ordered, append-only list of portfolio ids, capped at MaxPortfoliosPerOwner.
// Stored as a JSON array column.
type PortfolioIDs []uint64

// Append returns the list with id added, or ErrStorageCapacityExceeded when the list is full.
// The receiver is never truncated or modified.
func (p PortfolioIDs) Append(id uint64) (PortfolioIDs, error) {
	if len(p) >= MaxPortfoliosPerOwner {
		return p, ErrStorageCapacityExceeded
	}
	out := make(PortfolioIDs, len(p), len(p)+1)
	copy(out, p)
	return append(out, id), nil
}

// Contains reports whether id is in the list.
func (p PortfolioIDs) Contains(id uint64) bool {
	for _, v := range p {
		if v == id {
			return true
		}
	}
	return false
}

func (p PortfolioIDs) Value() (driver.Value, error) {
	if p == nil {
		p = PortfolioIDs{}
	}
	return datatypes.JSONSlice[uint64](p).Value()
}

func (p *PortfolioIDs) Scan(value interface{}) error {
	var s datatypes.JSONSlice[uint64]
	if err := s.Scan(value); err != nil {
		return err
	}
	*p = PortfolioIDs(s)
	return nil
}

func (PortfolioIDs) GormDataType() string {
	return datatypes.JSONSlice[uint64]{}.GormDataType()
}

func (PortfolioIDs) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONSlice[uint64]{}.GormDBDataType(db, field)
}

// UserPortfolios is the owner index row (UserPortfolios map).
type UserPortfolios struct {
	Owner        string       `gorm:"column:owner;type:varchar(128);primaryKey" json:"owner"`
	PortfolioIDs PortfolioIDs `gorm:"column:portfolio_ids;not null" json:"portfolio_ids"`
	CreatedAt    time.Time    `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"column:updatedAt" json:"updatedAt"`
}

func (UserPortfolios) TableName() string {
	return "UserPortfolios"
}
