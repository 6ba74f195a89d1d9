// Package verification tracks accredited verifiers and the verification
// requests that move projects from pending to verified in the registry.
package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
	"carbon-exchange/marketplace-backend/pkg/addresses"
)

// Validation bounds on verifier and request fields.
const (
	MaxVerifierNameLen     = 64
	MaxAccreditationLen    = 64
	MaxDocumentationURILen = 200
	MaxNotesLen            = 500
	MaxComplianceScore     = 100
)

// CertificationLevel grades a verifier's accreditation.
type CertificationLevel string

const (
	LevelBasic        CertificationLevel = "BASIC"
	LevelIntermediate CertificationLevel = "INTERMEDIATE"
	LevelAdvanced     CertificationLevel = "ADVANCED"
	LevelExpert       CertificationLevel = "EXPERT"
)

// CertificationLevels lists every valid level.
var CertificationLevels = []CertificationLevel{
	LevelBasic, LevelIntermediate, LevelAdvanced, LevelExpert,
}

// Valid reports whether l is one of the enumerated levels.
func (l CertificationLevel) Valid() bool {
	for _, known := range CertificationLevels {
		if l == known {
			return true
		}
	}
	return false
}

// RequestType classifies why a verification was requested.
type RequestType string

const (
	TypeInitial            RequestType = "INITIAL"
	TypePeriodic           RequestType = "PERIODIC"
	TypePostImplementation RequestType = "POST_IMPLEMENTATION"
	TypeSurveillance       RequestType = "SURVEILLANCE"
)

// RequestTypes lists every valid request type.
var RequestTypes = []RequestType{
	TypeInitial, TypePeriodic, TypePostImplementation, TypeSurveillance,
}

// Valid reports whether t is one of the enumerated request types.
func (t RequestType) Valid() bool {
	for _, known := range RequestTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequestStatus is the lifecycle state of a verification request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestCompleted RequestStatus = "COMPLETED"
)

// Verifier is an accredited verification body, keyed by the address of the
// authority that controls it.
type Verifier struct {
	Address            addresses.Address  `json:"address"`
	AuthorityAddress   addresses.Address  `json:"authority_address"`
	Name               string             `json:"name"`
	CertificationLevel CertificationLevel `json:"certification_level"`
	AccreditationBody  string             `json:"accreditation_body"`
	Active             bool               `json:"active"`
	ProjectsVerified   int64              `json:"projects_verified"`
	CreditsVerified    int64              `json:"credits_verified"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Result is the verifier's assessment attached to a completed request.
type Result struct {
	VerifierAddress addresses.Address `json:"verifier_address"`
	VerifiedCredits int64             `json:"verified_credits"`
	Notes           string            `json:"notes"`
	ComplianceScore int               `json:"compliance_score"`
	VerifiedAt      time.Time         `json:"verified_at"`
}

// Request is a project developer's ask for a verifier to assess a project.
type Request struct {
	ID               uuid.UUID         `json:"id"`
	Address          addresses.Address `json:"address"`
	ProjectID        string            `json:"project_id"`
	RequesterAddress addresses.Address `json:"requester_address"`
	VerifierAddress  addresses.Address `json:"verifier_address"`
	Type             RequestType       `json:"type"`
	DocumentationURI string            `json:"documentation_uri"`
	EstimatedCredits int64             `json:"estimated_credits"`
	Status           RequestStatus     `json:"status"`
	SubmittedAt      time.Time         `json:"submitted_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Result           *Result           `json:"result,omitempty"`
}

// RegisterVerifierRequest carries the metadata for a new verifier.
type RegisterVerifierRequest struct {
	AuthorityAddress   addresses.Address  `json:"authority_address"`
	Name               string             `json:"name"`
	CertificationLevel CertificationLevel `json:"certification_level"`
	AccreditationBody  string             `json:"accreditation_body"`
}

// SubmitRequest asks a verifier to assess a project.
type SubmitRequest struct {
	ProjectID        string            `json:"project_id"`
	RequesterAddress addresses.Address `json:"requester_address"`
	VerifierAddress  addresses.Address `json:"verifier_address"`
	Type             RequestType       `json:"type"`
	DocumentationURI string            `json:"documentation_uri"`
	EstimatedCredits int64             `json:"estimated_credits"`
}

// ConductRequest is the verifier's assessment of a pending request.
type ConductRequest struct {
	VerifierAuthority addresses.Address `json:"verifier_authority"`
	VerifiedCredits   int64             `json:"verified_credits"`
	Notes             string            `json:"notes"`
	ComplianceScore   int               `json:"compliance_score"`
}

// ProjectRegistry is the slice of the registry the verification ledger
// depends on.
type ProjectRegistry interface {
	Get(ctx context.Context, projectID string) (*market.Project, error)
	Verify(ctx context.Context, projectID string, verifier addresses.Address) error
}

// Service is the verification ledger.
type Service interface {
	RegisterVerifier(ctx context.Context, req RegisterVerifierRequest) (*Verifier, error)
	SetVerifierActive(ctx context.Context, authority addresses.Address, active bool) error
	GetVerifier(ctx context.Context, authority addresses.Address) (*Verifier, error)
	Verifiers(ctx context.Context) []*Verifier

	Submit(ctx context.Context, req SubmitRequest) (*Request, error)
	Conduct(ctx context.Context, requestID uuid.UUID, req ConductRequest) (*Request, error)
	Requests(ctx context.Context) []*Request
}

type verifierEntry struct {
	mu       sync.Mutex
	verifier Verifier
}

type requestEntry struct {
	mu      sync.Mutex
	request Request
}

type service struct {
	registry ProjectRegistry
	logger   *zap.Logger

	mu        sync.RWMutex
	verifiers map[addresses.Address]*verifierEntry
	requests  map[uuid.UUID]*requestEntry
}

// NewService creates an empty verification ledger over the given registry.
func NewService(registry ProjectRegistry, logger *zap.Logger) Service {
	return &service{
		registry:  registry,
		logger:    logger,
		verifiers: make(map[addresses.Address]*verifierEntry),
		requests:  make(map[uuid.UUID]*requestEntry),
	}
}

func validateRegisterVerifier(req RegisterVerifierRequest) error {
	if req.AuthorityAddress.IsZero() {
		return market.NewValidationError("authority_address", "required")
	}
	if req.Name == "" || len(req.Name) > MaxVerifierNameLen {
		return market.NewValidationError("name", "required, at most 64 characters")
	}
	if !req.CertificationLevel.Valid() {
		return market.NewValidationError("certification_level", "unknown level")
	}
	if len(req.AccreditationBody) > MaxAccreditationLen {
		return market.NewValidationError("accreditation_body", "at most 64 characters")
	}
	return nil
}

func (s *service) RegisterVerifier(ctx context.Context, req RegisterVerifierRequest) (*Verifier, error) {
	if err := validateRegisterVerifier(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.verifiers[req.AuthorityAddress]; exists {
		return nil, market.ErrDuplicateVerifier
	}

	verifier := Verifier{
		Address:            addresses.Derive(addresses.KindVerifier, req.AuthorityAddress[:]),
		AuthorityAddress:   req.AuthorityAddress,
		Name:               req.Name,
		CertificationLevel: req.CertificationLevel,
		AccreditationBody:  req.AccreditationBody,
		Active:             true,
		CreatedAt:          time.Now().UTC(),
	}
	s.verifiers[req.AuthorityAddress] = &verifierEntry{verifier: verifier}

	s.logger.Info("verifier registered",
		zap.String("name", req.Name),
		zap.String("address", verifier.Address.String()),
		zap.String("level", string(req.CertificationLevel)))

	snapshot := verifier
	return &snapshot, nil
}

func (s *service) lookupVerifier(authority addresses.Address) (*verifierEntry, error) {
	s.mu.RLock()
	entry, ok := s.verifiers[authority]
	s.mu.RUnlock()
	if !ok {
		return nil, market.ErrNotFound
	}
	return entry, nil
}

// lookupVerifierByAddress finds a verifier by its derived address, which is
// what requests reference.
func (s *service) lookupVerifierByAddress(addr addresses.Address) (*verifierEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.verifiers {
		if entry.verifier.Address == addr {
			return entry, nil
		}
	}
	return nil, market.ErrNotFound
}

func (s *service) SetVerifierActive(ctx context.Context, authority addresses.Address, active bool) error {
	entry, err := s.lookupVerifier(authority)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.verifier.Active = active
	entry.mu.Unlock()

	s.logger.Info("verifier status updated",
		zap.String("authority", authority.String()),
		zap.Bool("active", active))
	return nil
}

func (s *service) GetVerifier(ctx context.Context, authority addresses.Address) (*Verifier, error) {
	entry, err := s.lookupVerifier(authority)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	snapshot := entry.verifier
	entry.mu.Unlock()
	return &snapshot, nil
}

func (s *service) Verifiers(ctx context.Context) []*Verifier {
	s.mu.RLock()
	entries := make([]*verifierEntry, 0, len(s.verifiers))
	for _, entry := range s.verifiers {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	verifiers := make([]*Verifier, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		snapshot := entry.verifier
		entry.mu.Unlock()
		verifiers = append(verifiers, &snapshot)
	}
	return verifiers
}

func validateSubmit(req SubmitRequest) error {
	if !req.Type.Valid() {
		return market.NewValidationError("type", "unknown request type")
	}
	if len(req.DocumentationURI) > MaxDocumentationURILen {
		return market.NewValidationError("documentation_uri", "at most 200 characters")
	}
	if req.EstimatedCredits <= 0 {
		return market.ErrInvalidAmount
	}
	return nil
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Request, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	verifier, err := s.lookupVerifierByAddress(req.VerifierAddress)
	if err != nil {
		return nil, err
	}

	verifier.mu.Lock()
	active := verifier.verifier.Active
	verifier.mu.Unlock()
	if !active {
		return nil, market.ErrVerifierInactive
	}

	if _, err := s.registry.Get(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	id := uuid.New()
	request := Request{
		ID:               id,
		Address:          addresses.DeriveString(addresses.KindVerification, req.ProjectID, id.String()),
		ProjectID:        req.ProjectID,
		RequesterAddress: req.RequesterAddress,
		VerifierAddress:  req.VerifierAddress,
		Type:             req.Type,
		DocumentationURI: req.DocumentationURI,
		EstimatedCredits: req.EstimatedCredits,
		Status:           RequestPending,
		SubmittedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.requests[id] = &requestEntry{request: request}
	s.mu.Unlock()

	s.logger.Info("verification requested",
		zap.String("project_id", req.ProjectID),
		zap.String("request_id", id.String()),
		zap.String("type", string(req.Type)))

	snapshot := request
	return &snapshot, nil
}

func validateConduct(req ConductRequest) error {
	if req.VerifiedCredits <= 0 {
		return market.ErrInvalidAmount
	}
	if len(req.Notes) > MaxNotesLen {
		return market.NewValidationError("notes", "at most 500 characters")
	}
	if req.ComplianceScore < 0 || req.ComplianceScore > MaxComplianceScore {
		return market.NewValidationError("compliance_score", "must be between 0 and 100")
	}
	return nil
}

// Conduct records the verifier's assessment and promotes the project to
// verified in the registry.  The request stays pending if the registry
// rejects the transition, so a later attempt can still complete it.
func (s *service) Conduct(ctx context.Context, requestID uuid.UUID, req ConductRequest) (*Request, error) {
	if err := validateConduct(req); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.requests[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, market.ErrNotFound
	}

	verifier, err := s.lookupVerifier(req.VerifierAuthority)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.request.Status != RequestPending {
		return nil, market.ErrInvalidTransition
	}
	if verifier.verifier.Address != entry.request.VerifierAddress {
		return nil, market.ErrForbidden
	}

	if err := s.registry.Verify(ctx, entry.request.ProjectID, entry.request.VerifierAddress); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.request.Status = RequestCompleted
	entry.request.CompletedAt = &now
	entry.request.Result = &Result{
		VerifierAddress: entry.request.VerifierAddress,
		VerifiedCredits: req.VerifiedCredits,
		Notes:           req.Notes,
		ComplianceScore: req.ComplianceScore,
		VerifiedAt:      now,
	}

	verifier.mu.Lock()
	verifier.verifier.ProjectsVerified++
	verifier.verifier.CreditsVerified += req.VerifiedCredits
	verifier.mu.Unlock()

	s.logger.Info("verification completed",
		zap.String("project_id", entry.request.ProjectID),
		zap.String("request_id", requestID.String()),
		zap.Int64("verified_credits", req.VerifiedCredits),
		zap.Int("compliance_score", req.ComplianceScore))

	snapshot := entry.request
	return &snapshot, nil
}

func (s *service) Requests(ctx context.Context) []*Request {
	s.mu.RLock()
	entries := make([]*requestEntry, 0, len(s.requests))
	for _, entry := range s.requests {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	requests := make([]*Request, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		snapshot := entry.request
		entry.mu.Unlock()
		requests = append(requests, &snapshot)
	}
	return requests
}
