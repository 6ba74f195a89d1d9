package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbon-exchange/marketplace-backend/internal/market"
)

// LedgerSource is the slice of the listing ledger the recorder reads.
type LedgerSource interface {
	Listings(ctx context.Context) []market.Listing
	Purchases(ctx context.Context) []market.Purchase
}

// ProjectSource is the slice of the registry the recorder reads.
type ProjectSource interface {
	List(ctx context.Context) []*market.Project
}

// RetirementSource is the slice of the retirement ledger the recorder reads.
type RetirementSource interface {
	Retirements(ctx context.Context) []market.Retirement
}

// Recorder syncs committed ledger state into the archive.  Sync is
// idempotent: rows upsert on their primary keys, so overlapping runs are
// safe.
type Recorder struct {
	db          *gorm.DB
	ledger      LedgerSource
	projects    ProjectSource
	retirements RetirementSource
	logger      *zap.Logger
}

// NewRecorder wires a recorder to its sources.
func NewRecorder(db *gorm.DB, ledger LedgerSource, projects ProjectSource, retirements RetirementSource, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:          db,
		ledger:      ledger,
		projects:    projects,
		retirements: retirements,
		logger:      logger,
	}
}

// Sync copies the current ledger state into the archive tables.
func (r *Recorder) Sync(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	projects := r.projects.List(ctx)
	for _, project := range projects {
		row := projectRow(project)
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("archive project %s: %w", project.ProjectID, err)
		}
	}

	listings := r.ledger.Listings(ctx)
	for i := range listings {
		row := listingRow(&listings[i])
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("archive listing %s: %w", listings[i].ID, err)
		}
	}

	purchases := r.ledger.Purchases(ctx)
	for i := range purchases {
		row := purchaseRow(&purchases[i])
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("archive purchase %s: %w", purchases[i].ID, err)
		}
	}

	retirements := r.retirements.Retirements(ctx)
	for i := range retirements {
		row := retirementRow(&retirements[i])
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("archive retirement %s: %w", retirements[i].ID, err)
		}
	}

	r.logger.Debug("archive synced",
		zap.Int("projects", len(projects)),
		zap.Int("listings", len(listings)),
		zap.Int("purchases", len(purchases)),
		zap.Int("retirements", len(retirements)))
	return nil
}

// Run syncs on a fixed interval until the context is done.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil {
				r.logger.Error("archive sync failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func projectRow(p *market.Project) ProjectRecord {
	return ProjectRecord{
		ProjectID:            p.ProjectID,
		Address:              p.Address.String(),
		Name:                 p.Name,
		Type:                 string(p.Type),
		Location:             p.Location,
		DeveloperAddress:     p.DeveloperAddress.String(),
		VintageYear:          p.VintageYear,
		Methodology:          p.Methodology,
		VerificationStandard: string(p.VerificationStandard),
		Status:               string(p.Status),
		EstimatedCredits:     p.EstimatedCredits,
		TotalCreditsIssued:   p.TotalCreditsIssued,
		CreditsOutstanding:   p.CreditsOutstanding,
		MetadataURI:          p.MetadataURI,
		RegisteredAt:         p.CreatedAt,
		VerifiedAt:           p.VerifiedAt,
	}
}

func listingRow(l *market.Listing) ListingRecord {
	return ListingRecord{
		ListingID:            l.ID,
		Address:              l.Address.String(),
		ProjectID:            l.ProjectID,
		ProjectName:          l.ProjectName,
		ProjectType:          string(l.ProjectType),
		Location:             l.Location,
		VerificationStandard: string(l.VerificationStandard),
		SellerAddress:        l.SellerAddress.String(),
		AmountAvailable:      l.AmountAvailable,
		PricePerCredit:       l.PricePerCredit,
		TotalValue:           l.TotalValue,
		Status:               string(l.Status),
		ExpiresAt:            l.ExpiresAt,
		ListedAt:             l.CreatedAt,
	}
}

func purchaseRow(p *market.Purchase) PurchaseRecord {
	return PurchaseRecord{
		PurchaseID:      p.ID,
		Address:         p.Address.String(),
		ListingID:       p.ListingID,
		ProjectID:       p.ProjectID,
		BuyerAddress:    p.BuyerAddress.String(),
		SellerAddress:   p.SellerAddress.String(),
		AmountPurchased: p.AmountPurchased,
		UnitPrice:       p.UnitPrice,
		TotalPaid:       p.TotalPaid,
		FeePaid:         p.FeePaid,
		PurchasedAt:     p.Timestamp,
	}
}

func retirementRow(r *market.Retirement) RetirementRecord {
	return RetirementRecord{
		RetirementID:    r.ID,
		Address:         r.Address.String(),
		ProjectID:       r.ProjectID,
		RetiringAddress: r.RetiringAddress.String(),
		Amount:          r.Amount,
		Reason:          r.Reason,
		RetiredAt:       r.Timestamp,
	}
}
