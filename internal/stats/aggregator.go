// Package stats derives the marketplace-wide view from the registry and the
// trading ledgers, and streams it to websocket subscribers.
package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
)

// ListingSource is the slice of the listing ledger the aggregator reads.
type ListingSource interface {
	ActiveListings(ctx context.Context, now time.Time) []market.Listing
	Purchases(ctx context.Context) []market.Purchase
}

// ProjectSource is the slice of the registry the aggregator reads.
type ProjectSource interface {
	List(ctx context.Context) []*market.Project
}

// RetirementSource is the slice of the retirement ledger the aggregator reads.
type RetirementSource interface {
	TotalRetired(ctx context.Context) int64
}

// Aggregator computes MarketSnapshots on demand.  It holds no mutable state
// of its own, so a snapshot can never go stale in place.
type Aggregator struct {
	listings    ListingSource
	projects    ProjectSource
	retirements RetirementSource
	logger      *zap.Logger
}

// NewAggregator wires the aggregator to its read sources.
func NewAggregator(listings ListingSource, projects ProjectSource, retirements RetirementSource, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		listings:    listings,
		projects:    projects,
		retirements: retirements,
		logger:      logger,
	}
}

// Snapshot recomputes the marketplace view at the current instant.  Active
// listings are counted after an implicit expiry sweep.
func (a *Aggregator) Snapshot(ctx context.Context) market.MarketSnapshot {
	now := time.Now().UTC()

	var traded int64
	var volume float64
	for _, p := range a.listings.Purchases(ctx) {
		traded += p.AmountPurchased
		volume += float64(p.AmountPurchased) * p.UnitPrice
	}

	verified := 0
	for _, project := range a.projects.List(ctx) {
		if project.Status == market.ProjectVerified {
			verified++
		}
	}

	snapshot := market.MarketSnapshot{
		TotalCreditsTraded:   traded,
		TotalVolume:          volume,
		ActiveListingCount:   len(a.listings.ActiveListings(ctx, now)),
		VerifiedProjectCount: verified,
		TotalCreditsRetired:  a.retirements.TotalRetired(ctx),
		ComputedAt:           now,
	}

	a.logger.Debug("market snapshot computed",
		zap.Int64("credits_traded", snapshot.TotalCreditsTraded),
		zap.Float64("volume", snapshot.TotalVolume),
		zap.Int("active_listings", snapshot.ActiveListingCount))
	return snapshot
}
