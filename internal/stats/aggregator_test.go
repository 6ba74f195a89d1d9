package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/internal/marketplace"
	"carbon-exchange/marketplace-backend/internal/registry"
	"carbon-exchange/marketplace-backend/internal/retirement"
	"carbon-exchange/marketplace-backend/pkg/addresses"
)

func newTestMarket(t *testing.T) (*Aggregator, registry.Service, marketplace.Service, retirement.Service) {
	t.Helper()
	logger := zap.NewNop()

	reg := registry.NewService(logger)
	ledger := marketplace.NewService(reg, marketplace.Config{MinPurchaseAmount: 1}, logger)
	retire := retirement.NewService(reg, logger)
	agg := NewAggregator(ledger, reg, retire, logger)
	return agg, reg, ledger, retire
}

func TestSnapshotEmptyMarket(t *testing.T) {
	agg, _, _, _ := newTestMarket(t)

	snapshot := agg.Snapshot(context.Background())
	assert.Zero(t, snapshot.TotalCreditsTraded)
	assert.Zero(t, snapshot.TotalVolume)
	assert.Zero(t, snapshot.ActiveListingCount)
	assert.Zero(t, snapshot.VerifiedProjectCount)
	assert.False(t, snapshot.ComputedAt.IsZero())
}

// TestMarketLifecycleSnapshot walks the reference flow: register, verify,
// issue 50000, list 1000 at 15.50, buy 400, retire 200.
func TestMarketLifecycleSnapshot(t *testing.T) {
	agg, reg, ledger, retire := newTestMarket(t)
	ctx := context.Background()

	seller := addresses.DeriveString("wallet", "seller-1")
	buyer := addresses.DeriveString("wallet", "buyer-1")

	_, err := reg.Register(ctx, registry.RegisterProjectRequest{
		ProjectID:            "FOREST-001",
		Name:                 "Amazon Reforestation",
		Type:                 market.TypeForestry,
		Location:             "Brazil",
		VintageYear:          2024,
		VerificationStandard: market.StandardVCS,
	})
	require.NoError(t, err)
	require.NoError(t, reg.Verify(ctx, "FOREST-001", addresses.Address{}))
	require.NoError(t, reg.IssueCredits(ctx, "FOREST-001", 50000))

	listing, err := ledger.Create(ctx, marketplace.CreateListingRequest{
		ProjectID:      "FOREST-001",
		SellerAddress:  seller,
		Amount:         1000,
		PricePerCredit: 15.50,
		ExpiresAt:      time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)

	purchase, err := ledger.Purchase(ctx, listing.ID, buyer, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(400), purchase.AmountPurchased)

	after, err := ledger.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), after.AmountAvailable)

	snapshot := agg.Snapshot(ctx)
	assert.Equal(t, int64(400), snapshot.TotalCreditsTraded)
	assert.Equal(t, 6200.0, snapshot.TotalVolume)
	assert.Equal(t, 1, snapshot.ActiveListingCount)
	assert.Equal(t, 1, snapshot.VerifiedProjectCount)

	_, err = retire.Retire(ctx, retirement.RetireRequest{
		ProjectID:       "FOREST-001",
		RetiringAddress: buyer,
		Amount:          200,
		Reason:          "offsetting 2026 operations",
	})
	require.NoError(t, err)

	snapshot = agg.Snapshot(ctx)
	assert.Equal(t, int64(200), snapshot.TotalCreditsRetired)

	project, err := reg.Get(ctx, "FOREST-001")
	require.NoError(t, err)
	assert.Equal(t, int64(49800), project.CreditsOutstanding)
}

func TestSnapshotCountsOnlyVerifiedProjects(t *testing.T) {
	agg, reg, _, _ := newTestMarket(t)
	ctx := context.Background()

	for _, id := range []string{"A-001", "B-002", "C-003"} {
		_, err := reg.Register(ctx, registry.RegisterProjectRequest{
			ProjectID:            id,
			Name:                 "Project " + id,
			Type:                 market.TypeForestry,
			VintageYear:          2024,
			VerificationStandard: market.StandardVCS,
		})
		require.NoError(t, err)
	}
	require.NoError(t, reg.Verify(ctx, "A-001", addresses.Address{}))
	require.NoError(t, reg.Verify(ctx, "B-002", addresses.Address{}))
	require.NoError(t, reg.Suspend(ctx, "B-002", "audit"))

	// Registration alone never counts; suspension removes a project from
	// the verified count.
	snapshot := agg.Snapshot(ctx)
	assert.Equal(t, 1, snapshot.VerifiedProjectCount)
}

func TestSnapshotSweepsBeforeCounting(t *testing.T) {
	agg, reg, ledger, _ := newTestMarket(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, registry.RegisterProjectRequest{
		ProjectID:            "FOREST-001",
		Name:                 "Amazon Reforestation",
		Type:                 market.TypeForestry,
		VintageYear:          2024,
		VerificationStandard: market.StandardVCS,
	})
	require.NoError(t, err)
	require.NoError(t, reg.Verify(ctx, "FOREST-001", addresses.Address{}))
	require.NoError(t, reg.IssueCredits(ctx, "FOREST-001", 1000))

	listing, err := ledger.Create(ctx, marketplace.CreateListingRequest{
		ProjectID:      "FOREST-001",
		SellerAddress:  addresses.DeriveString("wallet", "seller-1"),
		Amount:         100,
		PricePerCredit: 10,
		ExpiresAt:      time.Now().Add(50 * time.Millisecond),
	})
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	snapshot := agg.Snapshot(ctx)
	assert.Zero(t, snapshot.ActiveListingCount)

	swept, err := ledger.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, market.ListingExpired, swept.Status)
}
