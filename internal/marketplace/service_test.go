package marketplace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/internal/registry"
	"carbon-exchange/marketplace-backend/pkg/addresses"
)

var (
	seller = addresses.DeriveString("wallet", "seller-1")
	buyer  = addresses.DeriveString("wallet", "buyer-1")
)

// newTestLedger backs the listing ledger with a real registry holding one
// verified project with 50000 outstanding credits.
func newTestLedger(t *testing.T) (Service, registry.Service) {
	t.Helper()
	ctx := context.Background()

	reg := registry.NewService(zap.NewNop())
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

	svc := NewService(reg, Config{FeeBasisPoints: 250, MinPurchaseAmount: 1}, zap.NewNop())
	return svc, reg
}

func createListing(t *testing.T, svc Service, amount int64, price float64) *market.Listing {
	t.Helper()
	listing, err := svc.Create(context.Background(), CreateListingRequest{
		ProjectID:      "FOREST-001",
		SellerAddress:  seller,
		Amount:         amount,
		PricePerCredit: price,
		ExpiresAt:      time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return listing
}

func TestCreateListing(t *testing.T) {
	svc, _ := newTestLedger(t)

	listing := createListing(t, svc, 1000, 15.50)

	assert.Equal(t, market.ListingActive, listing.Status)
	assert.Equal(t, int64(1000), listing.AmountAvailable)
	assert.Equal(t, 15500.0, listing.TotalValue)
	assert.Equal(t, "Amazon Reforestation", listing.ProjectName)
	assert.Equal(t, market.TypeForestry, listing.ProjectType)
	assert.False(t, listing.Address.IsZero())
}

func TestCreateListingValidation(t *testing.T) {
	svc, reg := newTestLedger(t)
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	_, err := svc.Create(ctx, CreateListingRequest{ProjectID: "FOREST-001", Amount: 0, PricePerCredit: 10, ExpiresAt: expiry})
	assert.ErrorIs(t, err, market.ErrInvalidAmount)

	_, err = svc.Create(ctx, CreateListingRequest{ProjectID: "FOREST-001", Amount: 100, PricePerCredit: 0, ExpiresAt: expiry})
	assert.ErrorIs(t, err, market.ErrInvalidPrice)

	_, err = svc.Create(ctx, CreateListingRequest{ProjectID: "FOREST-001", Amount: 100, PricePerCredit: 10, ExpiresAt: time.Now().Add(-time.Minute)})
	var vErr *market.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.Create(ctx, CreateListingRequest{ProjectID: "NOPE-404", Amount: 100, PricePerCredit: 10, ExpiresAt: expiry})
	assert.ErrorIs(t, err, market.ErrNotFound)

	// More credits than the project has outstanding.
	_, err = svc.Create(ctx, CreateListingRequest{ProjectID: "FOREST-001", Amount: 50001, PricePerCredit: 10, ExpiresAt: expiry})
	assert.ErrorIs(t, err, market.ErrInsufficientCredits)

	// Unverified project.
	_, regErr := reg.Register(ctx, registry.RegisterProjectRequest{
		ProjectID:            "SOLAR-001",
		Name:                 "Solar Farm",
		Type:                 market.TypeRenewableEnergy,
		VintageYear:          2024,
		VerificationStandard: market.StandardGoldStandard,
	})
	require.NoError(t, regErr)
	_, err = svc.Create(ctx, CreateListingRequest{ProjectID: "SOLAR-001", Amount: 100, PricePerCredit: 10, ExpiresAt: expiry})
	assert.ErrorIs(t, err, market.ErrProjectNotVerified)
}

func TestPurchaseFlow(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	listing := createListing(t, svc, 1000, 15.50)

	purchase, err := svc.Purchase(ctx, listing.ID, buyer, 400)
	require.NoError(t, err)

	assert.Equal(t, int64(400), purchase.AmountPurchased)
	assert.Equal(t, 15.50, purchase.UnitPrice)
	assert.Equal(t, 6200.0, purchase.TotalPaid)
	assert.Equal(t, 155.0, purchase.FeePaid) // 250 bps of 6200
	assert.Equal(t, buyer, purchase.BuyerAddress)
	assert.Equal(t, seller, purchase.SellerAddress)

	after, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), after.AmountAvailable)
	assert.Equal(t, market.ListingActive, after.Status)

	assert.Len(t, svc.Purchases(ctx), 1)
}

func TestPurchaseExhaustsListing(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	listing := createListing(t, svc, 500, 10)

	_, err := svc.Purchase(ctx, listing.ID, buyer, 500)
	require.NoError(t, err)

	after, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, market.ListingExhausted, after.Status)
	assert.Zero(t, after.AmountAvailable)

	_, err = svc.Purchase(ctx, listing.ID, buyer, 1)
	assert.ErrorIs(t, err, market.ErrListingInactive)
}

func TestPurchaseOversizedRequest(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	listing := createListing(t, svc, 1000, 12)

	_, err := svc.Purchase(ctx, listing.ID, buyer, 1500)
	assert.ErrorIs(t, err, market.ErrInsufficientListingAmount)

	// Failed purchase leaves the listing untouched.
	after, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), after.AmountAvailable)
	assert.Equal(t, market.ListingActive, after.Status)
	assert.Empty(t, svc.Purchases(ctx))
}

func TestPurchaseInvalidAmounts(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	listing := createListing(t, svc, 1000, 12)

	_, err := svc.Purchase(ctx, listing.ID, buyer, 0)
	assert.ErrorIs(t, err, market.ErrInvalidAmount)
	_, err = svc.Purchase(ctx, listing.ID, buyer, -10)
	assert.ErrorIs(t, err, market.ErrInvalidAmount)

	_, err = svc.Purchase(ctx, uuid.New(), buyer, 10)
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestPurchaseBelowMinimum(t *testing.T) {
	svc := NewService(stubCatalog{}, Config{MinPurchaseAmount: 10}, zap.NewNop())
	ctx := context.Background()

	listing, err := svc.Create(ctx, CreateListingRequest{
		ProjectID:      "FOREST-001",
		SellerAddress:  seller,
		Amount:         1000,
		PricePerCredit: 10,
		ExpiresAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Purchase(ctx, listing.ID, buyer, 5)
	assert.ErrorIs(t, err, market.ErrInvalidAmount)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	const capacity = 1000
	const buyers = 20
	const each = 100

	listing := createListing(t, svc, capacity, 10)

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(ctx, listing.ID, buyer, each)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}

	// Exactly as many fills as capacity allows, no lost updates.
	assert.Equal(t, capacity/each, succeeded)

	var sold int64
	for _, p := range svc.Purchases(ctx) {
		sold += p.AmountPurchased
	}
	assert.Equal(t, int64(capacity), sold)

	after, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Zero(t, after.AmountAvailable)
	assert.Equal(t, market.ListingExhausted, after.Status)
}

func TestCancelListing(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	listing := createListing(t, svc, 100, 10)

	// Only the seller can cancel.
	assert.ErrorIs(t, svc.Cancel(ctx, listing.ID, buyer), market.ErrForbidden)

	require.NoError(t, svc.Cancel(ctx, listing.ID, seller))

	after, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, market.ListingCancelled, after.Status)

	// Terminal states reject further transitions and purchases.
	assert.ErrorIs(t, svc.Cancel(ctx, listing.ID, seller), market.ErrListingInactive)
	_, err = svc.Purchase(ctx, listing.ID, buyer, 10)
	assert.ErrorIs(t, err, market.ErrListingInactive)
}

func TestSweepExpiredIdempotent(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	short := createListing(t, svc, 100, 10)
	long, err := svc.Create(ctx, CreateListingRequest{
		ProjectID:      "FOREST-001",
		SellerAddress:  seller,
		Amount:         100,
		PricePerCredit: 10,
		ExpiresAt:      time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	cutoff := time.Now().Add(14 * 24 * time.Hour)

	assert.Equal(t, 1, svc.SweepExpired(ctx, cutoff))
	// A second sweep at the same instant transitions nothing.
	assert.Equal(t, 0, svc.SweepExpired(ctx, cutoff))

	swept, err := svc.Get(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, market.ListingExpired, swept.Status)

	kept, err := svc.Get(ctx, long.ID)
	require.NoError(t, err)
	assert.Equal(t, market.ListingActive, kept.Status)
}

func TestActiveListingsExcludesInactive(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	active := createListing(t, svc, 100, 10)
	cancelled := createListing(t, svc, 100, 10)
	require.NoError(t, svc.Cancel(ctx, cancelled.ID, seller))

	now := time.Now()
	listings := svc.ActiveListings(ctx, now)
	require.Len(t, listings, 1)
	assert.Equal(t, active.ID, listings[0].ID)

	// History retains the cancelled listing.
	assert.Len(t, svc.Listings(ctx), 2)
}

type stubCatalog struct{}

func (stubCatalog) Get(ctx context.Context, projectID string) (*market.Project, error) {
	return &market.Project{
		ProjectID:          projectID,
		Name:               "Stub Project",
		Type:               market.TypeForestry,
		Status:             market.ProjectVerified,
		TotalCreditsIssued: 1 << 30,
		CreditsOutstanding: 1 << 30,
	}, nil
}
