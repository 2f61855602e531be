package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

// Service exposes client master data operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the client service.
func NewService(repo Repository, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: logger, now: now}
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id string) (Client, error) {
	return s.repo.GetClient(ctx, id)
}

// List returns clients matching the filter.
func (s *Service) List(ctx context.Context, filter ClientFilter) ([]Client, error) {
	return s.repo.ListClients(ctx, filter)
}

// Create registers a new client. New clients start active.
func (s *Service) Create(ctx context.Context, client Client) (Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	client.TaxID = strings.ToUpper(strings.TrimSpace(client.TaxID))
	client.Active = true
	return s.repo.CreateClient(ctx, client)
}

// Update rewrites the client's master data.
func (s *Service) Update(ctx context.Context, client Client) (Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	client.TaxID = strings.ToUpper(strings.TrimSpace(client.TaxID))
	return s.repo.UpdateClient(ctx, client)
}

// SetActive toggles the client's active flag. Inactive clients stop
// generating filings but keep their history.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (Client, error) {
	return s.repo.SetClientActive(ctx, id, active)
}

// Assignments lists a client's obligation subscriptions.
func (s *Service) Assignments(ctx context.Context, clientID string) ([]TaxAssignment, error) {
	return s.repo.ListAssignments(ctx, clientID)
}

// Assign subscribes a client to an obligation type after checking the
// compatibility rules for the client's fiscal profile.
func (s *Service) Assign(ctx context.Context, clientID, modelCode string, cadence taxcal.Cadence, notes string) (TaxAssignment, error) {
	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return TaxAssignment{}, err
	}
	modelCode = strings.ToUpper(strings.TrimSpace(modelCode))
	if err := ValidateAssignment(client.Type, modelCode, cadence); err != nil {
		return TaxAssignment{}, err
	}

	assignment, err := s.repo.CreateAssignment(ctx, TaxAssignment{
		ClientID:  clientID,
		ModelCode: modelCode,
		Cadence:   string(cadence),
		Active:    true,
		Notes:     notes,
	})
	if err != nil {
		return TaxAssignment{}, fmt.Errorf("clients: assign %s to %s: %w", modelCode, clientID, err)
	}
	return assignment, nil
}

// EndAssignment closes a subscription as of endDate. A zero endDate defaults
// to now.
func (s *Service) EndAssignment(ctx context.Context, id string, endDate time.Time) (TaxAssignment, error) {
	if endDate.IsZero() {
		endDate = s.now()
	}
	return s.repo.EndAssignment(ctx, id, endDate)
}

// SetAssignmentActive toggles a subscription without ending it.
func (s *Service) SetAssignmentActive(ctx context.Context, id string, active bool) (TaxAssignment, error) {
	return s.repo.SetAssignmentActive(ctx, id, active)
}

// ActiveAssignments returns every (active client, effective-active
// assignment) pair.
func (s *Service) ActiveAssignments(ctx context.Context) ([]ActiveAssignment, error) {
	return s.repo.ActiveAssignments(ctx)
}
