// Package retirement records permanent removal of credits from circulation.
// Retirement is one-way: there is no reversal operation.
package retirement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/pkg/addresses"
)

// MaxReasonLen bounds the free-text retirement reason.
const MaxReasonLen = 200

// Registry is the slice of the project registry the ledger needs.
type Registry interface {
	DebitOutstanding(ctx context.Context, projectID string, amount int64, commit func(*market.Project)) error
}

// RetireRequest carries the parameters for a retirement.
type RetireRequest struct {
	ProjectID       string            `json:"project_id"`
	RetiringAddress addresses.Address `json:"retiring_address"`
	Amount          int64             `json:"amount"`
	Reason          string            `json:"reason"`
}

// Service is the retirement ledger.
type Service interface {
	Retire(ctx context.Context, req RetireRequest) (*market.Retirement, error)
	Retirements(ctx context.Context) []market.Retirement
	TotalRetired(ctx context.Context) int64
}

type service struct {
	mu          sync.RWMutex
	retirements []market.Retirement

	registry Registry
	logger   *zap.Logger
}

// NewService creates an empty retirement ledger debiting the given registry.
func NewService(registry Registry, logger *zap.Logger) Service {
	return &service{registry: registry, logger: logger}
}

func (s *service) Retire(ctx context.Context, req RetireRequest) (*market.Retirement, error) {
	if req.Amount <= 0 {
		return nil, market.ErrInvalidAmount
	}
	if len(req.Reason) > MaxReasonLen {
		return nil, market.NewValidationError("reason", "at most 200 characters")
	}

	id := uuid.New()
	record := market.Retirement{
		ID:              id,
		Address:         addresses.DeriveString(addresses.KindRetirement, req.ProjectID, req.RetiringAddress.String(), id.String()),
		ProjectID:       req.ProjectID,
		RetiringAddress: req.RetiringAddress,
		Amount:          req.Amount,
		Reason:          req.Reason,
		Timestamp:       time.Now().UTC(),
	}

	// The balance debit and the record append share the registry's project
	// lock, so no reader sees one without the other.
	err := s.registry.DebitOutstanding(ctx, req.ProjectID, req.Amount, func(project *market.Project) {
		s.mu.Lock()
		s.retirements = append(s.retirements, record)
		s.mu.Unlock()

		s.logger.Info("credits retired",
			zap.String("retirement_id", id.String()),
			zap.String("project_id", req.ProjectID),
			zap.Int64("amount", req.Amount),
			zap.Int64("outstanding", project.CreditsOutstanding))
	})
	if err != nil {
		return nil, err
	}

	snapshot := record
	return &snapshot, nil
}

func (s *service) Retirements(ctx context.Context) []market.Retirement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Retirement, len(s.retirements))
	copy(out, s.retirements)
	return out
}

func (s *service) TotalRetired(ctx context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, r := range s.retirements {
		total += r.Amount
	}
	return total
}
