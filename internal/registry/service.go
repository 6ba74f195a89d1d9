// Package registry tracks carbon-offset projects and their verification
// lifecycle, and owns each project's credit balances.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/pkg/addresses"
	"carbon-exchange/marketplace-backend/pkg/workflows"
)

// Validation bounds on registration fields.
const (
	MaxProjectIDLen   = 32
	MaxNameLen        = 64
	MaxLocationLen    = 64
	MaxMethodologyLen = 100
	MaxMetadataURILen = 200
	MinVintageYear    = 2000
	MaxVintageYear    = 2100
)

// RegisterProjectRequest carries the metadata for a new project.
type RegisterProjectRequest struct {
	ProjectID            string                      `json:"project_id"`
	Name                 string                      `json:"name"`
	Type                 market.ProjectType          `json:"type"`
	Location             string                      `json:"location"`
	DeveloperAddress     addresses.Address           `json:"developer_address"`
	VintageYear          int                         `json:"vintage_year"`
	Methodology          string                      `json:"methodology"`
	VerificationStandard market.VerificationStandard `json:"verification_standard"`
	EstimatedCredits     int64                       `json:"estimated_credits"`
	MetadataURI          string                      `json:"metadata_uri"`
}

// Service is the project registry.
type Service interface {
	Register(ctx context.Context, req RegisterProjectRequest) (*market.Project, error)
	Verify(ctx context.Context, projectID string, verifier addresses.Address) error
	IssueCredits(ctx context.Context, projectID string, quantity int64) error
	Suspend(ctx context.Context, projectID, reason string) error
	Get(ctx context.Context, projectID string) (*market.Project, error)
	List(ctx context.Context) []*market.Project
	Batches(ctx context.Context, projectID string) ([]market.CreditBatch, error)

	// DebitOutstanding atomically decreases a project's outstanding balance.
	// commit runs while the project entry is still locked, so the caller can
	// append its own record inside the same commit boundary.
	DebitOutstanding(ctx context.Context, projectID string, amount int64, commit func(*market.Project)) error
}

type projectEntry struct {
	mu      sync.Mutex
	project market.Project
	batches []market.CreditBatch
}

type service struct {
	mu           sync.RWMutex
	projects     map[addresses.Address]*projectEntry
	stateMachine *workflows.StateMachine
	logger       *zap.Logger
}

// NewService creates an empty registry.
func NewService(logger *zap.Logger) Service {
	return &service{
		projects:     make(map[addresses.Address]*projectEntry),
		stateMachine: workflows.NewProjectStateMachine(),
		logger:       logger,
	}
}

func validateRegisterRequest(req RegisterProjectRequest) error {
	if req.ProjectID == "" || len(req.ProjectID) > MaxProjectIDLen {
		return market.NewValidationError("project_id", "required, at most 32 characters")
	}
	if req.Name == "" || len(req.Name) > MaxNameLen {
		return market.NewValidationError("name", "required, at most 64 characters")
	}
	if !req.Type.Valid() {
		return market.NewValidationError("type", "unknown project type")
	}
	if len(req.Location) > MaxLocationLen {
		return market.NewValidationError("location", "at most 64 characters")
	}
	if req.VintageYear < MinVintageYear || req.VintageYear > MaxVintageYear {
		return market.NewValidationError("vintage_year", "must be between 2000 and 2100")
	}
	if len(req.Methodology) > MaxMethodologyLen {
		return market.NewValidationError("methodology", "at most 100 characters")
	}
	if !req.VerificationStandard.Valid() {
		return market.NewValidationError("verification_standard", "unknown standard")
	}
	if req.EstimatedCredits < 0 {
		return market.NewValidationError("estimated_credits", "must not be negative")
	}
	if len(req.MetadataURI) > MaxMetadataURILen {
		return market.NewValidationError("metadata_uri", "at most 200 characters")
	}
	return nil
}

func (s *service) Register(ctx context.Context, req RegisterProjectRequest) (*market.Project, error) {
	if err := validateRegisterRequest(req); err != nil {
		return nil, err
	}

	addr := addresses.DeriveString(addresses.KindProject, req.ProjectID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[addr]; exists {
		return nil, market.ErrDuplicateProject
	}

	project := market.Project{
		Address:              addr,
		ProjectID:            req.ProjectID,
		Name:                 req.Name,
		Type:                 req.Type,
		Location:             req.Location,
		DeveloperAddress:     req.DeveloperAddress,
		VintageYear:          req.VintageYear,
		Methodology:          req.Methodology,
		VerificationStandard: req.VerificationStandard,
		Status:               market.ProjectPending,
		EstimatedCredits:     req.EstimatedCredits,
		MetadataURI:          req.MetadataURI,
		CreatedAt:            time.Now().UTC(),
	}
	s.projects[addr] = &projectEntry{project: project}

	s.logger.Info("project registered",
		zap.String("project_id", req.ProjectID),
		zap.String("address", addr.String()),
		zap.String("type", string(req.Type)))

	snapshot := project
	return &snapshot, nil
}

// lookup returns the live entry for a project id.
func (s *service) lookup(projectID string) (*projectEntry, error) {
	addr := addresses.DeriveString(addresses.KindProject, projectID)
	s.mu.RLock()
	entry, ok := s.projects[addr]
	s.mu.RUnlock()
	if !ok {
		return nil, market.ErrNotFound
	}
	return entry, nil
}

func (s *service) Verify(ctx context.Context, projectID string, verifier addresses.Address) error {
	entry, err := s.lookup(projectID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !s.stateMachine.CanTransition(string(entry.project.Status), string(market.ProjectVerified)) {
		return market.ErrInvalidTransition
	}
	now := time.Now().UTC()
	entry.project.Status = market.ProjectVerified
	entry.project.VerifiedAt = &now

	s.logger.Info("project verified",
		zap.String("project_id", projectID),
		zap.String("verifier", verifier.String()))
	return nil
}

func (s *service) IssueCredits(ctx context.Context, projectID string, quantity int64) error {
	if quantity <= 0 {
		return market.ErrInvalidAmount
	}

	entry, err := s.lookup(projectID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.project.Status != market.ProjectVerified {
		return market.ErrInvalidTransition
	}
	entry.project.TotalCreditsIssued += quantity
	entry.project.CreditsOutstanding += quantity

	// Each issuance is tracked as its own batch, appended under the same
	// lock as the balance change.
	sequence := len(entry.batches) + 1
	batchID := fmt.Sprintf("%s-B%03d", projectID, sequence)
	entry.batches = append(entry.batches, market.CreditBatch{
		Address:   addresses.DeriveString(addresses.KindBatch, projectID, batchID),
		BatchID:   batchID,
		ProjectID: projectID,
		Sequence:  sequence,
		Quantity:  quantity,
		IssuedAt:  time.Now().UTC(),
	})

	s.logger.Info("credits issued",
		zap.String("project_id", projectID),
		zap.String("batch_id", batchID),
		zap.Int64("quantity", quantity),
		zap.Int64("outstanding", entry.project.CreditsOutstanding))
	return nil
}

func (s *service) Batches(ctx context.Context, projectID string) ([]market.CreditBatch, error) {
	entry, err := s.lookup(projectID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	batches := make([]market.CreditBatch, len(entry.batches))
	copy(batches, entry.batches)
	entry.mu.Unlock()
	return batches, nil
}

func (s *service) Suspend(ctx context.Context, projectID, reason string) error {
	entry, err := s.lookup(projectID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.project.Status == market.ProjectSuspended {
		return nil
	}
	entry.project.Status = market.ProjectSuspended

	s.logger.Warn("project suspended",
		zap.String("project_id", projectID),
		zap.String("reason", reason))
	return nil
}

func (s *service) Get(ctx context.Context, projectID string) (*market.Project, error) {
	entry, err := s.lookup(projectID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	snapshot := entry.project
	entry.mu.Unlock()
	return &snapshot, nil
}

func (s *service) List(ctx context.Context) []*market.Project {
	s.mu.RLock()
	entries := make([]*projectEntry, 0, len(s.projects))
	for _, entry := range s.projects {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	projects := make([]*market.Project, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		snapshot := entry.project
		entry.mu.Unlock()
		projects = append(projects, &snapshot)
	}
	return projects
}

func (s *service) DebitOutstanding(ctx context.Context, projectID string, amount int64, commit func(*market.Project)) error {
	if amount <= 0 {
		return market.ErrInvalidAmount
	}

	entry, err := s.lookup(projectID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if amount > entry.project.CreditsOutstanding {
		return market.ErrInsufficientCredits
	}
	entry.project.CreditsOutstanding -= amount
	if commit != nil {
		commit(&entry.project)
	}
	return nil
}
