// Package market defines the entities shared by the registry and the trading
// ledgers, along with the error kinds their operations return.
package market

import (
	"time"

	"github.com/google/uuid"

	"carbon-exchange/marketplace-backend/pkg/addresses"
)

// ProjectType classifies the offset methodology family of a project.
type ProjectType string

const (
	TypeForestry         ProjectType = "FORESTRY"
	TypeRenewableEnergy  ProjectType = "RENEWABLE_ENERGY"
	TypeEnergyEfficiency ProjectType = "ENERGY_EFFICIENCY"
	TypeMethane          ProjectType = "METHANE"
	TypeTransportation   ProjectType = "TRANSPORTATION"
	TypeAgriculture      ProjectType = "AGRICULTURE"
	TypeWasteManagement  ProjectType = "WASTE_MANAGEMENT"
	TypeCarbonCapture    ProjectType = "CARBON_CAPTURE"
)

// ProjectTypes lists every valid project type.
var ProjectTypes = []ProjectType{
	TypeForestry, TypeRenewableEnergy, TypeEnergyEfficiency, TypeMethane,
	TypeTransportation, TypeAgriculture, TypeWasteManagement, TypeCarbonCapture,
}

// Valid reports whether t is one of the enumerated project types.
func (t ProjectType) Valid() bool {
	for _, known := range ProjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// VerificationStandard identifies the registry standard a project is
// certified under.
type VerificationStandard string

const (
	StandardVCS          VerificationStandard = "VCS"
	StandardCDM          VerificationStandard = "CDM"
	StandardGoldStandard VerificationStandard = "GOLD_STANDARD"
	StandardCAR          VerificationStandard = "CAR"
	StandardACR          VerificationStandard = "ACR"
	StandardPlanVivo     VerificationStandard = "PLAN_VIVO"
)

// VerificationStandards lists every valid standard.
var VerificationStandards = []VerificationStandard{
	StandardVCS, StandardCDM, StandardGoldStandard,
	StandardCAR, StandardACR, StandardPlanVivo,
}

// Valid reports whether s is one of the enumerated standards.
func (s VerificationStandard) Valid() bool {
	for _, known := range VerificationStandards {
		if s == known {
			return true
		}
	}
	return false
}

// ProjectStatus is the registry lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPending   ProjectStatus = "PENDING"
	ProjectVerified  ProjectStatus = "VERIFIED"
	ProjectSuspended ProjectStatus = "SUSPENDED"
)

// ListingStatus is the lifecycle state of a credit listing.  Every state
// other than Active is terminal.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingExhausted ListingStatus = "EXHAUSTED"
	ListingExpired   ListingStatus = "EXPIRED"
	ListingCancelled ListingStatus = "CANCELLED"
)

// Project is a registered carbon-offset project.  CreditsOutstanding never
// exceeds TotalCreditsIssued and only decreases through retirement.
type Project struct {
	Address              addresses.Address    `json:"address"`
	ProjectID            string               `json:"project_id"`
	Name                 string               `json:"name"`
	Type                 ProjectType          `json:"type"`
	Location             string               `json:"location"`
	DeveloperAddress     addresses.Address    `json:"developer_address"`
	VintageYear          int                  `json:"vintage_year"`
	Methodology          string               `json:"methodology"`
	VerificationStandard VerificationStandard `json:"verification_standard"`
	Status               ProjectStatus        `json:"status"`
	EstimatedCredits     int64                `json:"estimated_credits"`
	TotalCreditsIssued   int64                `json:"total_credits_issued"`
	CreditsOutstanding   int64                `json:"credits_outstanding"`
	MetadataURI          string               `json:"metadata_uri"`
	CreatedAt            time.Time            `json:"created_at"`
	VerifiedAt           *time.Time           `json:"verified_at,omitempty"`
}

// Listing is a sell-side offer of credits from a verified project.
type Listing struct {
	ID                   uuid.UUID            `json:"id"`
	Address              addresses.Address    `json:"address"`
	ProjectID            string               `json:"project_id"`
	ProjectName          string               `json:"project_name"`
	ProjectType          ProjectType          `json:"project_type"`
	Location             string               `json:"location"`
	VerificationStandard VerificationStandard `json:"verification_standard"`
	SellerAddress        addresses.Address    `json:"seller_address"`
	AmountAvailable      int64                `json:"amount_available"`
	PricePerCredit       float64              `json:"price_per_credit"`
	TotalValue           float64              `json:"total_value"`
	Status               ListingStatus        `json:"status"`
	ExpiresAt            time.Time            `json:"expires_at"`
	CreatedAt            time.Time            `json:"created_at"`
}

// Active reports whether the listing can still be purchased from at the
// given instant.
func (l *Listing) Active(now time.Time) bool {
	return l.Status == ListingActive && !now.After(l.ExpiresAt)
}

// Purchase is an immutable record of a fill against a listing.  UnitPrice is
// the listing price at the instant of execution.
type Purchase struct {
	ID              uuid.UUID         `json:"id"`
	Address         addresses.Address `json:"address"`
	ListingID       uuid.UUID         `json:"listing_id"`
	ProjectID       string            `json:"project_id"`
	BuyerAddress    addresses.Address `json:"buyer_address"`
	SellerAddress   addresses.Address `json:"seller_address"`
	AmountPurchased int64             `json:"amount_purchased"`
	UnitPrice       float64           `json:"unit_price"`
	TotalPaid       float64           `json:"total_paid"`
	FeePaid         float64           `json:"fee_paid"`
	Timestamp       time.Time         `json:"timestamp"`
}

// CreditBatch is an immutable record of one credit issuance against a
// project.  Batches partition TotalCreditsIssued by issuance event.
type CreditBatch struct {
	Address   addresses.Address `json:"address"`
	BatchID   string            `json:"batch_id"`
	ProjectID string            `json:"project_id"`
	Sequence  int               `json:"sequence"`
	Quantity  int64             `json:"quantity"`
	IssuedAt  time.Time         `json:"issued_at"`
}

// Retirement is an immutable record of credits permanently removed from
// circulation.  There is no reversal operation.
type Retirement struct {
	ID              uuid.UUID         `json:"id"`
	Address         addresses.Address `json:"address"`
	ProjectID       string            `json:"project_id"`
	RetiringAddress addresses.Address `json:"retiring_address"`
	Amount          int64             `json:"amount"`
	Reason          string            `json:"reason"`
	Timestamp       time.Time         `json:"timestamp"`
}

// MarketSnapshot is the derived marketplace-wide view.  It is recomputed on
// demand, never stored.
type MarketSnapshot struct {
	TotalCreditsTraded   int64     `json:"total_credits_traded"`
	TotalVolume          float64   `json:"total_volume"`
	ActiveListingCount   int       `json:"active_listing_count"`
	VerifiedProjectCount int       `json:"verified_project_count"`
	TotalCreditsRetired  int64     `json:"total_credits_retired"`
	ComputedAt           time.Time `json:"computed_at"`
}
