// Package marketplace owns the lifecycle of credit listings: creation,
// purchase, seller cancellation, and expiry sweeps.
package marketplace

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/pkg/addresses"
	"carbon-exchange/marketplace-backend/pkg/workflows"
)

// Config carries the marketplace-level trading parameters.
type Config struct {
	// FeeBasisPoints is the marketplace fee taken from each purchase,
	// in hundredths of a percent.
	FeeBasisPoints int64
	// MinPurchaseAmount rejects dust purchases below this many credits.
	MinPurchaseAmount int64
}

// ProjectCatalog is the slice of the registry the ledger needs.
type ProjectCatalog interface {
	Get(ctx context.Context, projectID string) (*market.Project, error)
}

// CreateListingRequest carries the parameters for a new listing.
type CreateListingRequest struct {
	ProjectID      string            `json:"project_id"`
	SellerAddress  addresses.Address `json:"seller_address"`
	Amount         int64             `json:"amount"`
	PricePerCredit float64           `json:"price_per_credit"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// Service is the listing ledger.
type Service interface {
	Create(ctx context.Context, req CreateListingRequest) (*market.Listing, error)
	Purchase(ctx context.Context, listingID uuid.UUID, buyer addresses.Address, amount int64) (*market.Purchase, error)
	Cancel(ctx context.Context, listingID uuid.UUID, caller addresses.Address) error
	SweepExpired(ctx context.Context, now time.Time) int

	Get(ctx context.Context, listingID uuid.UUID) (*market.Listing, error)
	Listings(ctx context.Context) []market.Listing
	ActiveListings(ctx context.Context, now time.Time) []market.Listing
	Purchases(ctx context.Context) []market.Purchase
}

type listingEntry struct {
	mu      sync.Mutex
	listing market.Listing
}

type service struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]*listingEntry

	purchasesMu sync.RWMutex
	purchases   []market.Purchase

	catalog      ProjectCatalog
	stateMachine *workflows.StateMachine
	config       Config
	logger       *zap.Logger
}

// NewService creates an empty listing ledger backed by the given project
// catalog.
func NewService(catalog ProjectCatalog, config Config, logger *zap.Logger) Service {
	return &service{
		listings:     make(map[uuid.UUID]*listingEntry),
		catalog:      catalog,
		stateMachine: workflows.NewListingStateMachine(),
		config:       config,
		logger:       logger,
	}
}

func (s *service) Create(ctx context.Context, req CreateListingRequest) (*market.Listing, error) {
	if req.Amount <= 0 {
		return nil, market.ErrInvalidAmount
	}
	if req.PricePerCredit <= 0 {
		return nil, market.ErrInvalidPrice
	}
	now := time.Now().UTC()
	if !req.ExpiresAt.After(now) {
		return nil, market.NewValidationError("expires_at", "must be in the future")
	}

	project, err := s.catalog.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != market.ProjectVerified {
		return nil, market.ErrProjectNotVerified
	}
	// Advisory inventory check only: listed credits are not reserved against
	// the project's outstanding balance.
	if req.Amount > project.CreditsOutstanding {
		return nil, market.ErrInsufficientCredits
	}

	id := uuid.New()
	listing := market.Listing{
		ID:                   id,
		Address:              addresses.DeriveString(addresses.KindListing, req.ProjectID, req.SellerAddress.String(), id.String()),
		ProjectID:            project.ProjectID,
		ProjectName:          project.Name,
		ProjectType:          project.Type,
		Location:             project.Location,
		VerificationStandard: project.VerificationStandard,
		SellerAddress:        req.SellerAddress,
		AmountAvailable:      req.Amount,
		PricePerCredit:       req.PricePerCredit,
		TotalValue:           float64(req.Amount) * req.PricePerCredit,
		Status:               market.ListingActive,
		ExpiresAt:            req.ExpiresAt.UTC(),
		CreatedAt:            now,
	}

	s.mu.Lock()
	s.listings[id] = &listingEntry{listing: listing}
	s.mu.Unlock()

	s.logger.Info("listing created",
		zap.String("listing_id", id.String()),
		zap.String("project_id", req.ProjectID),
		zap.Int64("amount", req.Amount),
		zap.Float64("price_per_credit", req.PricePerCredit))

	snapshot := listing
	return &snapshot, nil
}

func (s *service) lookup(listingID uuid.UUID) (*listingEntry, error) {
	s.mu.RLock()
	entry, ok := s.listings[listingID]
	s.mu.RUnlock()
	if !ok {
		return nil, market.ErrNotFound
	}
	return entry, nil
}

func (s *service) Purchase(ctx context.Context, listingID uuid.UUID, buyer addresses.Address, amount int64) (*market.Purchase, error) {
	if amount <= 0 {
		return nil, market.ErrInvalidAmount
	}
	if amount < s.config.MinPurchaseAmount {
		return nil, market.ErrInvalidAmount
	}

	entry, err := s.lookup(listingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// The decrement and the purchase record commit under the same entry
	// lock: concurrent purchases serialize here, and no reader can observe
	// one without the other.
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.listing.Status == market.ListingActive && now.After(entry.listing.ExpiresAt) {
		entry.listing.Status = market.ListingExpired
	}
	if entry.listing.Status != market.ListingActive {
		return nil, market.ErrListingInactive
	}
	if amount > entry.listing.AmountAvailable {
		return nil, market.ErrInsufficientListingAmount
	}

	entry.listing.AmountAvailable -= amount
	if entry.listing.AmountAvailable == 0 {
		entry.listing.Status = market.ListingExhausted
	}

	id := uuid.New()
	totalPaid := float64(amount) * entry.listing.PricePerCredit
	purchase := market.Purchase{
		ID:              id,
		Address:         addresses.DeriveString(addresses.KindPurchase, listingID.String(), buyer.String(), id.String()),
		ListingID:       listingID,
		ProjectID:       entry.listing.ProjectID,
		BuyerAddress:    buyer,
		SellerAddress:   entry.listing.SellerAddress,
		AmountPurchased: amount,
		UnitPrice:       entry.listing.PricePerCredit,
		TotalPaid:       totalPaid,
		FeePaid:         totalPaid * float64(s.config.FeeBasisPoints) / 10000,
		Timestamp:       now,
	}

	s.purchasesMu.Lock()
	s.purchases = append(s.purchases, purchase)
	s.purchasesMu.Unlock()

	s.logger.Info("purchase committed",
		zap.String("purchase_id", id.String()),
		zap.String("listing_id", listingID.String()),
		zap.Int64("amount", amount),
		zap.Float64("unit_price", purchase.UnitPrice),
		zap.Int64("remaining", entry.listing.AmountAvailable))

	snapshot := purchase
	return &snapshot, nil
}

func (s *service) Cancel(ctx context.Context, listingID uuid.UUID, caller addresses.Address) error {
	entry, err := s.lookup(listingID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if caller != entry.listing.SellerAddress {
		return market.ErrForbidden
	}
	if !s.stateMachine.CanTransition(string(entry.listing.Status), string(market.ListingCancelled)) {
		return market.ErrListingInactive
	}
	entry.listing.Status = market.ListingCancelled

	s.logger.Info("listing cancelled",
		zap.String("listing_id", listingID.String()),
		zap.String("seller", caller.String()))
	return nil
}

func (s *service) SweepExpired(ctx context.Context, now time.Time) int {
	s.mu.RLock()
	entries := make([]*listingEntry, 0, len(s.listings))
	for _, entry := range s.listings {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	swept := 0
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.listing.Status == market.ListingActive && entry.listing.ExpiresAt.Before(now) {
			entry.listing.Status = market.ListingExpired
			swept++
		}
		entry.mu.Unlock()
	}

	if swept > 0 {
		s.logger.Info("expired listings swept", zap.Int("count", swept))
	}
	return swept
}

func (s *service) Get(ctx context.Context, listingID uuid.UUID) (*market.Listing, error) {
	entry, err := s.lookup(listingID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	snapshot := entry.listing
	entry.mu.Unlock()
	return &snapshot, nil
}

// snapshotListings copies every listing, oldest first, each under its own
// entry lock.
func (s *service) snapshotListings() []market.Listing {
	s.mu.RLock()
	entries := make([]*listingEntry, 0, len(s.listings))
	for _, entry := range s.listings {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	listings := make([]market.Listing, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		listings = append(listings, entry.listing)
		entry.mu.Unlock()
	}
	sortListingsByCreation(listings)
	return listings
}

func (s *service) Listings(ctx context.Context) []market.Listing {
	return s.snapshotListings()
}

func (s *service) ActiveListings(ctx context.Context, now time.Time) []market.Listing {
	s.SweepExpired(ctx, now)

	all := s.snapshotListings()
	active := make([]market.Listing, 0, len(all))
	for _, listing := range all {
		if listing.Active(now) {
			active = append(active, listing)
		}
	}
	return active
}

// sortListingsByCreation orders a snapshot oldest first, breaking ties on
// the listing id so snapshots of unchanged state are byte-for-byte stable.
func sortListingsByCreation(listings []market.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].CreatedAt.Before(listings[j].CreatedAt)
		}
		return bytes.Compare(listings[i].ID[:], listings[j].ID[:]) < 0
	})
}

func (s *service) Purchases(ctx context.Context) []market.Purchase {
	s.purchasesMu.RLock()
	defer s.purchasesMu.RUnlock()
	out := make([]market.Purchase, len(s.purchases))
	copy(out, s.purchases)
	return out
}
