package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"portfolio-registry/internal/chain"
	"portfolio-registry/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultRebalanceCooldown is the number of blocks (about a day) after which a portfolio is due for rebalancing.
const DefaultRebalanceCooldown = 144

// requiredSlots is how many leading slots create validates and writes unless MaterializeAllSlots is set.
const requiredSlots = 2

// Options configures a Service.
type Options struct {
	// ProtocolOwner administers the registry until Initialize hands it over.
	ProtocolOwner string
	// MaterializeAllSlots writes an allocation row for every supplied slot on create
	// instead of only slots 0 and 1.
	MaterializeAllSlots bool
	// RebalanceCooldown overrides DefaultRebalanceCooldown when non-zero.
	RebalanceCooldown uint64
}

// RebalanceEligibility is the read-only result of CalculateRebalanceAmounts.
type RebalanceEligibility struct {
	PortfolioID    uint64 `json:"portfolio_id"`
	TotalValue     uint64 `json:"total_value"`
	NeedsRebalance bool   `json:"needs_rebalance"`
}

// Service creates portfolios and applies allocation and rebalance updates.
// Each mutating call is one database transaction, and mutating calls are serialized.
type Service struct {
	DB          *gorm.DB
	Clock       chain.Clock
	Options     Options
	Portfolios  PortfolioStore
	Allocations AllocationTable
	Owners      OwnerIndex

	mu sync.Mutex
}

// NewService wires the stores around db. The clock supplies the block height stamped on writes.
func NewService(db *gorm.DB, clock chain.Clock, opts Options) *Service {
	portfolios := PortfolioStore{Seed: domain.NewProtocolState(opts.ProtocolOwner)}
	return &Service{
		DB:          db,
		Clock:       clock,
		Options:     opts,
		Portfolios:  portfolios,
		Allocations: AllocationTable{Portfolios: portfolios},
	}
}

// Bootstrap makes sure the protocol state row exists.
func (s *Service) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.Portfolios.State(tx)
		return err
	})
}

func (s *Service) cooldown() uint64 {
	if s.Options.RebalanceCooldown > 0 {
		return s.Options.RebalanceCooldown
	}
	return DefaultRebalanceCooldown
}

func (s *Service) height(ctx context.Context) (uint64, error) {
	h, err := s.Clock.Height(ctx)
	if err != nil {
		return 0, fmt.Errorf("read block height: %w", err)
	}
	return h, nil
}

// validateCreate runs the create preconditions in order, stopping at the first failure.
// Percentages are checked one by one; nothing requires them to sum to 10000.
func (s *Service) validateCreate(tokens []string, percentages []uint32) error {
	if len(tokens) > domain.MaxSlots || len(percentages) > domain.MaxSlots {
		return domain.ErrMaxAssetsExceeded
	}
	if len(tokens) != len(percentages) {
		return domain.ErrLengthMismatch
	}
	for _, p := range percentages {
		if p > domain.MaxBasisPoints {
			return domain.ErrInvalidPercentage
		}
	}
	if len(tokens) < requiredSlots {
		return domain.ErrInvalidToken
	}
	for i := 0; i < s.materializedSlots(len(tokens)); i++ {
		if strings.TrimSpace(tokens[i]) == "" {
			return domain.ErrInvalidToken
		}
	}
	return nil
}

func (s *Service) materializedSlots(n int) int {
	if s.Options.MaterializeAllSlots {
		return n
	}
	return requiredSlots
}

// Create registers a portfolio owned by caller and returns its id.
func (s *Service) Create(ctx context.Context, caller string, tokens []string, percentages []uint32) (uint64, error) {
	if caller == "" {
		return 0, domain.ErrNotAuthorized
	}
	if err := s.validateCreate(tokens, percentages); err != nil {
		log.Ctx(ctx).Warn().Str("owner", caller).Err(err).Msg("create portfolio rejected")
		return 0, err
	}
	now, err := s.height(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id uint64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := s.Portfolios.NextIdentifier(tx)
		if err != nil {
			return err
		}
		p := domain.Portfolio{
			ID:                   next,
			Owner:                caller,
			CreatedAtHeight:      now,
			LastRebalancedHeight: now,
			TotalValue:           0,
			Active:               true,
			SlotCount:            uint8(len(tokens)),
		}
		if err := s.Portfolios.Insert(tx, &p); err != nil {
			return err
		}
		for i := 0; i < s.materializedSlots(len(tokens)); i++ {
			a := domain.AssetAllocation{
				PortfolioID:      next,
				SlotIndex:        uint32(i),
				TargetPercentage: percentages[i],
				CurrentAmount:    0,
				TokenAddress:     tokens[i],
			}
			if err := s.Allocations.Set(tx, &a); err != nil {
				return err
			}
		}
		if err := s.Owners.Append(tx, caller, next); err != nil {
			return err
		}
		if err := s.Portfolios.CommitCounter(tx, next); err != nil {
			return err
		}
		id = next
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Warn().Str("owner", caller).Err(err).Msg("create portfolio failed")
		return 0, err
	}
	log.Ctx(ctx).Info().Uint64("portfolio_id", id).Str("owner", caller).Int("slots", len(tokens)).Uint64("height", now).Msg("portfolio created")
	return id, nil
}

// UpdateAllocation sets the target percentage of one slot. Only the owner may call it.
func (s *Service) UpdateAllocation(ctx context.Context, caller string, portfolioID uint64, slot uint32, percentage uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, found, err := s.Portfolios.Get(tx, portfolioID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrInvalidPortfolio
		}
		if !p.OwnedBy(caller) {
			return domain.ErrNotAuthorized
		}
		a, found, err := s.Allocations.Get(tx, portfolioID, slot)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrInvalidToken
		}
		if percentage > domain.MaxBasisPoints {
			return domain.ErrInvalidPercentage
		}
		valid, err := s.Allocations.IsValidSlot(tx, portfolioID, slot)
		if err != nil {
			return err
		}
		if !valid {
			return domain.ErrInvalidTokenID
		}
		a.TargetPercentage = percentage
		return s.Allocations.Set(tx, &a)
	})
	if err != nil {
		log.Ctx(ctx).Warn().Uint64("portfolio_id", portfolioID).Uint32("slot", slot).Str("caller", caller).Err(err).Msg("update allocation rejected")
		return err
	}
	log.Ctx(ctx).Info().Uint64("portfolio_id", portfolioID).Uint32("slot", slot).Uint32("target_bps", percentage).Msg("allocation updated")
	return nil
}

// Rebalance records that the portfolio was rebalanced at the current height. No amounts move.
func (s *Service) Rebalance(ctx context.Context, caller string, portfolioID uint64) error {
	now, err := s.height(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, found, err := s.Portfolios.Get(tx, portfolioID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrInvalidPortfolio
		}
		if !p.OwnedBy(caller) {
			return domain.ErrNotAuthorized
		}
		if !p.Active {
			return domain.ErrInvalidPortfolio
		}
		p.LastRebalancedHeight = now
		return s.Portfolios.Insert(tx, &p)
	})
	if err != nil {
		log.Ctx(ctx).Warn().Uint64("portfolio_id", portfolioID).Str("caller", caller).Err(err).Msg("rebalance rejected")
		return err
	}
	log.Ctx(ctx).Info().Uint64("portfolio_id", portfolioID).Uint64("height", now).Msg("portfolio rebalanced")
	return nil
}

// CalculateRebalanceAmounts reports whether more than the cooldown has elapsed since the last rebalance.
func (s *Service) CalculateRebalanceAmounts(ctx context.Context, portfolioID uint64) (RebalanceEligibility, error) {
	p, found, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return RebalanceEligibility{}, err
	}
	if !found {
		return RebalanceEligibility{}, domain.ErrInvalidPortfolio
	}
	now, err := s.height(ctx)
	if err != nil {
		return RebalanceEligibility{}, err
	}
	return RebalanceEligibility{
		PortfolioID:    p.ID,
		TotalValue:     p.TotalValue,
		NeedsRebalance: NeedsRebalance(now, p.LastRebalancedHeight, s.cooldown()),
	}, nil
}

// NeedsRebalance is true when strictly more than cooldown blocks separate now from last.
func NeedsRebalance(now, last, cooldown uint64) bool {
	if now < last {
		return false
	}
	return now-last > cooldown
}

// GetPortfolio returns the portfolio with the given id; found is false when there is none.
func (s *Service) GetPortfolio(ctx context.Context, portfolioID uint64) (domain.Portfolio, bool, error) {
	return s.Portfolios.Get(s.DB.WithContext(ctx), portfolioID)
}

// GetPortfolioAsset returns one allocation slot; found is false when the slot was never written.
func (s *Service) GetPortfolioAsset(ctx context.Context, portfolioID uint64, slot uint32) (domain.AssetAllocation, bool, error) {
	return s.Allocations.Get(s.DB.WithContext(ctx), portfolioID, slot)
}

// GetUserPortfolios lists the ids owner created, oldest first. The list is empty, not nil, for unknown owners.
func (s *Service) GetUserPortfolios(ctx context.Context, owner string) (domain.PortfolioIDs, error) {
	return s.Owners.ListFor(s.DB.WithContext(ctx), owner)
}

// ProtocolInfo returns the counter, owner and fee. It never writes.
func (s *Service) ProtocolInfo(ctx context.Context) (domain.ProtocolState, error) {
	return s.Portfolios.Peek(s.DB.WithContext(ctx))
}

// Initialize hands protocol administration from caller, who must be the current owner, to newOwner.
func (s *Service) Initialize(ctx context.Context, caller, newOwner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := s.Portfolios.State(tx)
		if err != nil {
			return err
		}
		if caller == "" || caller != st.ProtocolOwner {
			return domain.ErrNotAuthorized
		}
		if newOwner == "" || newOwner == caller {
			return domain.ErrNotAuthorized
		}
		return s.Portfolios.SetOwner(tx, newOwner)
	})
	if err != nil {
		log.Ctx(ctx).Warn().Str("caller", caller).Str("new_owner", newOwner).Err(err).Msg("initialize rejected")
		return err
	}
	log.Ctx(ctx).Info().Str("previous_owner", caller).Str("new_owner", newOwner).Msg("protocol owner changed")
	return nil
}
