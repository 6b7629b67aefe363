package portfolio

import (
	"errors"
	"fmt"

	"portfolio-registry/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PortfolioStore owns the Portfolios table and the portfolio counter kept in ProtocolState.
// Every method runs on the *gorm.DB it is handed, so callers decide the transaction boundary.
type PortfolioStore struct {
	// Seed is written when no ProtocolState row exists yet.
	Seed domain.ProtocolState
}

// State loads the ProtocolState row FOR UPDATE (ignored by SQLite), creating it from Seed on first use.
// Only writers holding the service lock call it.
func (s PortfolioStore) State(tx *gorm.DB) (domain.ProtocolState, error) {
	st, found, err := s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}))
	if err != nil || found {
		return st, err
	}
	st = s.Seed
	if err := tx.Create(&st).Error; err != nil {
		return st, fmt.Errorf("seed protocol state: %w", err)
	}
	return st, nil
}

// Peek reads the ProtocolState row without writing. Before the row exists it reports Seed.
func (s PortfolioStore) Peek(tx *gorm.DB) (domain.ProtocolState, error) {
	st, found, err := s.load(tx)
	if err != nil {
		return st, err
	}
	if !found {
		return s.Seed, nil
	}
	return st, nil
}

func (s PortfolioStore) load(q *gorm.DB) (st domain.ProtocolState, found bool, err error) {
	err = q.Where("id = ?", s.Seed.ID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, false, nil
	}
	if err != nil {
		return st, false, fmt.Errorf("load protocol state: %w", err)
	}
	return st, true, nil
}

// NextIdentifier returns counter+1 without advancing the counter.
func (s PortfolioStore) NextIdentifier(tx *gorm.DB) (uint64, error) {
	st, err := s.State(tx)
	if err != nil {
		return 0, err
	}
	return st.PortfolioCounter + 1, nil
}

// CommitCounter advances the counter to id. Callers pass strictly increasing ids.
func (s PortfolioStore) CommitCounter(tx *gorm.DB, id uint64) error {
	err := tx.Model(&domain.ProtocolState{}).
		Where("id = ?", s.Seed.ID).
		Update("portfolio_counter", id).Error
	if err != nil {
		return fmt.Errorf("commit portfolio counter: %w", err)
	}
	return nil
}

// Insert writes p, overwriting any row with the same id.
func (s PortfolioStore) Insert(tx *gorm.DB, p *domain.Portfolio) error {
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error; err != nil {
		return fmt.Errorf("insert portfolio %d: %w", p.ID, err)
	}
	return nil
}

// Get returns the portfolio with the given id; found is false when there is none.
func (s PortfolioStore) Get(tx *gorm.DB, id uint64) (p domain.Portfolio, found bool, err error) {
	err = tx.Where("portfolio_id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("get portfolio %d: %w", id, err)
	}
	return p, true, nil
}

// SetOwner transfers protocol administration to owner.
func (s PortfolioStore) SetOwner(tx *gorm.DB, owner string) error {
	err := tx.Model(&domain.ProtocolState{}).
		Where("id = ?", s.Seed.ID).
		Update("protocol_owner", owner).Error
	if err != nil {
		return fmt.Errorf("set protocol owner: %w", err)
	}
	return nil
}
