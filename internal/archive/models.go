// Package archive persists committed marketplace history to postgres so it
// survives restarts.  The in-memory ledgers stay authoritative; rows here
// are a write-behind copy synced after commit.
package archive

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRecord mirrors a registry project.
type ProjectRecord struct {
	ProjectID            string         `gorm:"column:project_id;primaryKey" json:"project_id"`
	Address              string         `gorm:"column:address;uniqueIndex;not null" json:"address"`
	Name                 string         `gorm:"column:name;not null" json:"name"`
	Type                 string         `gorm:"column:type;not null" json:"type"`
	Location             string         `gorm:"column:location" json:"location"`
	DeveloperAddress     string         `gorm:"column:developer_address;not null" json:"developer_address"`
	VintageYear          int            `gorm:"column:vintage_year;not null" json:"vintage_year"`
	Methodology          string         `gorm:"column:methodology" json:"methodology"`
	VerificationStandard string         `gorm:"column:verification_standard;not null" json:"verification_standard"`
	Status               string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	EstimatedCredits     int64          `gorm:"column:estimated_credits;not null" json:"estimated_credits"`
	TotalCreditsIssued   int64          `gorm:"column:total_credits_issued;not null" json:"total_credits_issued"`
	CreditsOutstanding   int64          `gorm:"column:credits_outstanding;not null" json:"credits_outstanding"`
	MetadataURI          string         `gorm:"column:metadata_uri" json:"metadata_uri"`
	RegisteredAt         time.Time      `gorm:"column:registered_at;not null" json:"registered_at"`
	VerifiedAt           *time.Time     `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProjectRecord) TableName() string {
	return "projects"
}

// ListingRecord mirrors a credit listing.
type ListingRecord struct {
	ListingID            uuid.UUID      `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	Address              string         `gorm:"column:address;uniqueIndex;not null" json:"address"`
	ProjectID            string         `gorm:"column:project_id;not null" json:"project_id"`
	ProjectName          string         `gorm:"column:project_name;not null" json:"project_name"`
	ProjectType          string         `gorm:"column:project_type;not null" json:"project_type"`
	Location             string         `gorm:"column:location" json:"location"`
	VerificationStandard string         `gorm:"column:verification_standard;not null" json:"verification_standard"`
	SellerAddress        string         `gorm:"column:seller_address;not null" json:"seller_address"`
	AmountAvailable      int64          `gorm:"column:amount_available;not null" json:"amount_available"`
	PricePerCredit       float64        `gorm:"column:price_per_credit;type:decimal(18,2);not null" json:"price_per_credit"`
	TotalValue           float64        `gorm:"column:total_value;type:decimal(18,2);not null" json:"total_value"`
	Status               string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	ExpiresAt            time.Time      `gorm:"column:expires_at;not null" json:"expires_at"`
	ListedAt             time.Time      `gorm:"column:listed_at;not null" json:"listed_at"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ListingRecord) TableName() string {
	return "listings"
}

// PurchaseRecord mirrors an immutable purchase.
type PurchaseRecord struct {
	PurchaseID      uuid.UUID `gorm:"column:purchase_id;type:uuid;primaryKey" json:"purchase_id"`
	Address         string    `gorm:"column:address;uniqueIndex;not null" json:"address"`
	ListingID       uuid.UUID `gorm:"column:listing_id;type:uuid;not null" json:"listing_id"`
	ProjectID       string    `gorm:"column:project_id;not null" json:"project_id"`
	BuyerAddress    string    `gorm:"column:buyer_address;not null" json:"buyer_address"`
	SellerAddress   string    `gorm:"column:seller_address;not null" json:"seller_address"`
	AmountPurchased int64     `gorm:"column:amount_purchased;not null" json:"amount_purchased"`
	UnitPrice       float64   `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	TotalPaid       float64   `gorm:"column:total_paid;type:decimal(18,2);not null" json:"total_paid"`
	FeePaid         float64   `gorm:"column:fee_paid;type:decimal(18,2);not null" json:"fee_paid"`
	PurchasedAt     time.Time `gorm:"column:purchased_at;not null" json:"purchased_at"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (PurchaseRecord) TableName() string {
	return "purchases"
}

// RetirementRecord mirrors an immutable retirement.
type RetirementRecord struct {
	RetirementID    uuid.UUID `gorm:"column:retirement_id;type:uuid;primaryKey" json:"retirement_id"`
	Address         string    `gorm:"column:address;uniqueIndex;not null" json:"address"`
	ProjectID       string    `gorm:"column:project_id;not null" json:"project_id"`
	RetiringAddress string    `gorm:"column:retiring_address;not null" json:"retiring_address"`
	Amount          int64     `gorm:"column:amount;not null" json:"amount"`
	Reason          string    `gorm:"column:reason" json:"reason"`
	RetiredAt       time.Time `gorm:"column:retired_at;not null" json:"retired_at"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (RetirementRecord) TableName() string {
	return "retirements"
}

// AutoMigrate creates or updates the archive tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProjectRecord{},
		&ListingRecord{},
		&PurchaseRecord{},
		&RetirementRecord{},
	)
}
