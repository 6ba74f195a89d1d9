// Package query filters and sorts listing snapshots for presentation.  Both
// operations are pure: they never touch the ledger and never fail.
package query

import (
	"sort"
	"strings"

	"carbon-exchange/marketplace-backend/internal/market"
)

// SortKey selects the listing attribute to order by.
type SortKey string

const (
	SortByPrice  SortKey = "price"
	SortByAmount SortKey = "amount"
	SortByExpiry SortKey = "expiry"
)

// SortOrder selects the direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Filter is a conjunction of listing predicates.  Zero-valued fields match
// everything.
type Filter struct {
	// Search matches case-insensitively against project name, seller
	// address, and location.
	Search string
	// ProjectType, when set, requires an exact type match.
	ProjectType *market.ProjectType
	// VerificationStandard, when set, requires an exact standard match.
	VerificationStandard *market.VerificationStandard
	// MinPrice and MaxPrice bound PricePerCredit inclusively.
	MinPrice *float64
	MaxPrice *float64
}

// Matches reports whether a single listing satisfies every predicate.
func (f Filter) Matches(listing market.Listing) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(listing.ProjectName), needle) &&
			!strings.Contains(strings.ToLower(listing.SellerAddress.String()), needle) &&
			!strings.Contains(strings.ToLower(listing.Location), needle) {
			return false
		}
	}
	if f.ProjectType != nil && listing.ProjectType != *f.ProjectType {
		return false
	}
	if f.VerificationStandard != nil && listing.VerificationStandard != *f.VerificationStandard {
		return false
	}
	if f.MinPrice != nil && listing.PricePerCredit < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && listing.PricePerCredit > *f.MaxPrice {
		return false
	}
	return true
}

// Apply returns the listings satisfying the filter, preserving input order.
// No matches yields an empty slice, not an error.
func Apply(listings []market.Listing, f Filter) []market.Listing {
	out := make([]market.Listing, 0, len(listings))
	for _, listing := range listings {
		if f.Matches(listing) {
			out = append(out, listing)
		}
	}
	return out
}

// Sort returns a copy of the listings ordered by key and order.  The sort is
// stable: ties keep their original relative order, so repeated sorts over
// unchanged data are deterministic.
func Sort(listings []market.Listing, key SortKey, order SortOrder) []market.Listing {
	out := make([]market.Listing, len(listings))
	copy(out, listings)

	less := func(a, b market.Listing) bool {
		switch key {
		case SortByAmount:
			return a.AmountAvailable < b.AmountAvailable
		case SortByExpiry:
			return a.ExpiresAt.Before(b.ExpiresAt)
		default:
			return a.PricePerCredit < b.PricePerCredit
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
