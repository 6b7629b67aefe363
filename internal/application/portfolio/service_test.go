package portfolio

import (
	"context"
	"fmt"
	"testing"

	"portfolio-registry/internal/chain"
	"portfolio-registry/internal/domain"
	"portfolio-registry/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerU = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"
	ownerV = "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE"
	admin  = "SP000000000000000000002Q6VF78"
)

func setupService(t *testing.T, opts Options) (*Service, *chain.ManualClock) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	clock := chain.NewManualClock(1000)
	if opts.ProtocolOwner == "" {
		opts.ProtocolOwner = admin
	}
	svc := NewService(db, clock, opts)
	require.NoError(t, svc.Bootstrap(context.Background()))
	return svc, clock
}

func createAB(t *testing.T, svc *Service, owner string) uint64 {
	id, err := svc.Create(context.Background(), owner, []string{"token-a", "token-b"}, []uint32{5000, 5000})
	require.NoError(t, err)
	return id
}

// Create [A,B] / [5000,5000] as U -> id 1, owner index [1], slot 0 at 5000.
func TestCreate_FirstPortfolio(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()

	id := createAB(t, svc, ownerU)
	assert.Equal(t, uint64(1), id)

	ids, err := svc.GetUserPortfolios(ctx, ownerU)
	require.NoError(t, err)
	assert.Equal(t, domain.PortfolioIDs{1}, ids)

	a, found, err := svc.GetPortfolioAsset(ctx, 1, 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(5000), a.TargetPercentage)
	assert.Equal(t, "token-a", a.TokenAddress)
	assert.Equal(t, uint64(0), a.CurrentAmount)

	p, found, err := svc.GetPortfolio(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ownerU, p.Owner)
	assert.Equal(t, uint64(1000), p.CreatedAtHeight)
	assert.Equal(t, uint64(1000), p.LastRebalancedHeight)
	assert.Equal(t, uint64(0), p.TotalValue)
	assert.True(t, p.Active)
	assert.Equal(t, uint8(2), p.SlotCount)

	st, err := svc.ProtocolInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.PortfolioCounter)
	assert.Equal(t, uint32(domain.ProtocolFeeBps), st.ProtocolFeeBps)
}

func TestCreate_IdentifiersAreSequential(t *testing.T) {
	svc, _ := setupService(t, Options{})
	for want := uint64(1); want <= 5; want++ {
		owner := ownerU
		if want%2 == 0 {
			owner = ownerV
		}
		assert.Equal(t, want, createAB(t, svc, owner))
	}
	ids, err := svc.GetUserPortfolios(context.Background(), ownerV)
	require.NoError(t, err)
	assert.Equal(t, domain.PortfolioIDs{2, 4}, ids)
}

func TestCreate_Validation(t *testing.T) {
	eleven := make([]string, 11)
	elevenPct := make([]uint32, 11)
	for i := range eleven {
		eleven[i] = fmt.Sprintf("token-%d", i)
	}

	tests := []struct {
		name        string
		tokens      []string
		percentages []uint32
		want        error
	}{
		{"too many tokens", eleven, elevenPct, domain.ErrMaxAssetsExceeded},
		{"too many percentages", []string{"a", "b"}, elevenPct, domain.ErrMaxAssetsExceeded},
		{"length mismatch", []string{"a", "b", "c"}, []uint32{1, 2}, domain.ErrLengthMismatch},
		{"length mismatch beats bad percentage", []string{"a"}, []uint32{20000, 1}, domain.ErrLengthMismatch},
		{"percentage over 10000", []string{"a", "b"}, []uint32{5000, 10001}, domain.ErrInvalidPercentage},
		{"bad percentage in later slot", []string{"a", "b", "c"}, []uint32{0, 0, 10001}, domain.ErrInvalidPercentage},
		{"single asset", []string{"a"}, []uint32{10000}, domain.ErrInvalidToken},
		{"no assets", []string{}, []uint32{}, domain.ErrInvalidToken},
		{"blank first token", []string{" ", "b"}, []uint32{5000, 5000}, domain.ErrInvalidToken},
		{"blank second token", []string{"a", ""}, []uint32{5000, 5000}, domain.ErrInvalidToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := setupService(t, Options{})
			ctx := context.Background()
			_, err := svc.Create(ctx, ownerU, tc.tokens, tc.percentages)
			assert.ErrorIs(t, err, tc.want)

			_, found, err := svc.GetPortfolio(ctx, 1)
			require.NoError(t, err)
			assert.False(t, found, "nothing persisted")
			st, err := svc.ProtocolInfo(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), st.PortfolioCounter)
		})
	}
}

func TestCreate_BoundaryPercentages(t *testing.T) {
	svc, _ := setupService(t, Options{})
	id, err := svc.Create(context.Background(), ownerU, []string{"a", "b"}, []uint32{0, 10000})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestCreate_RequiresCaller(t *testing.T) {
	svc, _ := setupService(t, Options{})
	_, err := svc.Create(context.Background(), "", []string{"a", "b"}, []uint32{1, 1})
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

// Only the first two slots get allocation rows by default; slot count still records every asset.
func TestCreate_MaterializesFirstTwoSlots(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()
	id, err := svc.Create(ctx, ownerU, []string{"a", "b", "c", "d"}, []uint32{2500, 2500, 2500, 2500})
	require.NoError(t, err)

	p, _, err := svc.GetPortfolio(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), p.SlotCount)

	_, found, err := svc.GetPortfolioAsset(ctx, id, 1)
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = svc.GetPortfolioAsset(ctx, id, 2)
	require.NoError(t, err)
	assert.False(t, found)

	err = svc.UpdateAllocation(ctx, ownerU, id, 2, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCreate_MaterializeAllSlots(t *testing.T) {
	svc, _ := setupService(t, Options{MaterializeAllSlots: true})
	ctx := context.Background()
	id, err := svc.Create(ctx, ownerU, []string{"a", "b", "c"}, []uint32{3000, 3000, 4000})
	require.NoError(t, err)

	a, found, err := svc.GetPortfolioAsset(ctx, id, 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c", a.TokenAddress)
	assert.Equal(t, uint32(4000), a.TargetPercentage)

	_, err = svc.Create(ctx, ownerU, []string{"a", "b", ""}, []uint32{1, 1, 1})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

// The 21st create by one owner fails and rolls back the portfolio, its slots and the counter.
func TestCreate_OwnerCapacityRollsBack(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()
	for i := 1; i <= domain.MaxPortfoliosPerOwner; i++ {
		createAB(t, svc, ownerU)
	}

	_, err := svc.Create(ctx, ownerU, []string{"a", "b"}, []uint32{5000, 5000})
	assert.ErrorIs(t, err, domain.ErrStorageCapacityExceeded)

	_, found, err := svc.GetPortfolio(ctx, 21)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = svc.GetPortfolioAsset(ctx, 21, 0)
	require.NoError(t, err)
	assert.False(t, found)

	ids, err := svc.GetUserPortfolios(ctx, ownerU)
	require.NoError(t, err)
	assert.Len(t, ids, domain.MaxPortfoliosPerOwner)

	st, err := svc.ProtocolInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), st.PortfolioCounter)

	// another owner still gets the next id
	assert.Equal(t, uint64(21), createAB(t, svc, ownerV))
}

func TestUpdateAllocation(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()
	id := createAB(t, svc, ownerU)

	require.NoError(t, svc.UpdateAllocation(ctx, ownerU, id, 0, 6000))
	a, _, err := svc.GetPortfolioAsset(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(6000), a.TargetPercentage)
	assert.Equal(t, "token-a", a.TokenAddress)
	assert.Equal(t, uint64(0), a.CurrentAmount)

	err = svc.UpdateAllocation(ctx, ownerV, id, 0, 1000)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	a, _, err = svc.GetPortfolioAsset(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(6000), a.TargetPercentage, "unchanged after rejected update")
}

func TestUpdateAllocation_Errors(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()
	id := createAB(t, svc, ownerU)

	assert.ErrorIs(t, svc.UpdateAllocation(ctx, ownerU, 99, 0, 1), domain.ErrInvalidPortfolio)
	assert.ErrorIs(t, svc.UpdateAllocation(ctx, ownerV, 99, 0, 1), domain.ErrInvalidPortfolio)
	assert.ErrorIs(t, svc.UpdateAllocation(ctx, ownerV, id, 5, 20000), domain.ErrNotAuthorized)
	assert.ErrorIs(t, svc.UpdateAllocation(ctx, ownerU, id, 5, 20000), domain.ErrInvalidToken)
	assert.ErrorIs(t, svc.UpdateAllocation(ctx, ownerU, id, 1, 10001), domain.ErrInvalidPercentage)
	assert.NoError(t, svc.UpdateAllocation(ctx, ownerU, id, 1, 10000))
}

// A stray allocation row outside the recorded slot count is rejected by the slot check.
func TestUpdateAllocation_InvalidSlot(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()
	id := createAB(t, svc, ownerU)

	stray := domain.AssetAllocation{PortfolioID: id, SlotIndex: 3, TokenAddress: "token-x"}
	require.NoError(t, svc.Allocations.Set(svc.DB, &stray))

	err := svc.UpdateAllocation(ctx, ownerU, id, 3, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidTokenID)
}

func TestIsValidSlot(t *testing.T) {
	svc, _ := setupService(t, Options{})
	id, err := svc.Create(context.Background(), ownerU, []string{"a", "b", "c"}, []uint32{1, 2, 3})
	require.NoError(t, err)

	for slot, want := range map[uint32]bool{0: true, 2: true, 3: false, 10: false} {
		got, err := svc.Allocations.IsValidSlot(svc.DB, id, slot)
		require.NoError(t, err)
		assert.Equal(t, want, got, "slot %d", slot)
	}
	got, err := svc.Allocations.IsValidSlot(svc.DB, 42, 0)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestRebalance(t *testing.T) {
	svc, clock := setupService(t, Options{})
	ctx := context.Background()
	id := createAB(t, svc, ownerU)

	clock.Set(1200)
	require.NoError(t, svc.Rebalance(ctx, ownerU, id))
	p, _, err := svc.GetPortfolio(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), p.LastRebalancedHeight)
	assert.Equal(t, uint64(1000), p.CreatedAtHeight)

	// same height again: succeeds, timestamp unchanged
	require.NoError(t, svc.Rebalance(ctx, ownerU, id))
	p, _, err = svc.GetPortfolio(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), p.LastRebalancedHeight)

	assert.ErrorIs(t, svc.Rebalance(ctx, ownerV, id), domain.ErrNotAuthorized)
	assert.ErrorIs(t, svc.Rebalance(ctx, ownerU, 7), domain.ErrInvalidPortfolio)
}

func TestRebalance_InactivePortfolio(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()
	id := createAB(t, svc, ownerU)
	require.NoError(t, svc.DB.Model(&domain.Portfolio{}).Where("portfolio_id = ?", id).Update("active", false).Error)

	assert.ErrorIs(t, svc.Rebalance(ctx, ownerU, id), domain.ErrInvalidPortfolio)
}

func TestCalculateRebalanceAmounts(t *testing.T) {
	svc, clock := setupService(t, Options{})
	ctx := context.Background()
	id := createAB(t, svc, ownerU)

	_, err := svc.CalculateRebalanceAmounts(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidPortfolio)

	clock.Set(1000 + 144)
	got, err := svc.CalculateRebalanceAmounts(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RebalanceEligibility{PortfolioID: id, TotalValue: 0, NeedsRebalance: false}, got)

	clock.Set(1000 + 145)
	got, err = svc.CalculateRebalanceAmounts(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.NeedsRebalance)

	require.NoError(t, svc.Rebalance(ctx, ownerU, id))
	got, err = svc.CalculateRebalanceAmounts(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.NeedsRebalance)
}

func TestCalculateRebalanceAmounts_CustomCooldown(t *testing.T) {
	svc, clock := setupService(t, Options{RebalanceCooldown: 10})
	id := createAB(t, svc, ownerU)
	clock.Set(1011)
	got, err := svc.CalculateRebalanceAmounts(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.NeedsRebalance)
}

func TestGetUserPortfolios_Empty(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ids, err := svc.GetUserPortfolios(context.Background(), ownerV)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestInitialize(t *testing.T) {
	svc, _ := setupService(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Initialize(ctx, ownerU, ownerV), domain.ErrNotAuthorized)
	assert.ErrorIs(t, svc.Initialize(ctx, admin, admin), domain.ErrNotAuthorized)
	assert.ErrorIs(t, svc.Initialize(ctx, admin, ""), domain.ErrNotAuthorized)

	require.NoError(t, svc.Initialize(ctx, admin, ownerU))
	st, err := svc.ProtocolInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, ownerU, st.ProtocolOwner)

	assert.ErrorIs(t, svc.Initialize(ctx, admin, ownerV), domain.ErrNotAuthorized, "previous owner lost the role")
}

func TestNeedsRebalance(t *testing.T) {
	assert.False(t, NeedsRebalance(144, 0, 144))
	assert.True(t, NeedsRebalance(145, 0, 144))
	assert.False(t, NeedsRebalance(5, 10, 144), "clock behind last rebalance")
}

func TestProtocolInfo_DoesNotSeed(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	svc := NewService(db, chain.NewManualClock(0), Options{ProtocolOwner: admin})
	ctx := context.Background()

	st, err := svc.ProtocolInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin, st.ProtocolOwner)
	assert.Equal(t, uint64(0), st.PortfolioCounter)
	assert.Equal(t, uint32(domain.ProtocolFeeBps), st.ProtocolFeeBps)

	var rows int64
	require.NoError(t, db.Model(&domain.ProtocolState{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	require.NoError(t, svc.Bootstrap(ctx))
	require.NoError(t, db.Model(&domain.ProtocolState{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
