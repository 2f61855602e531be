package filings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

// ErrUnknownStatus is returned when a transition targets a status spelling
// outside the normalization table.
var ErrUnknownStatus = errors.New("filings: unknown status value")

// Assignment links an active client to one obligation type it must file.
type Assignment struct {
	ClientID   string
	ClientName string
	ModelCode  string
}

// AssignmentSource yields the active client-to-obligation assignments that
// seed filing creation.
type AssignmentSource interface {
	ActiveAssignments(ctx context.Context) ([]Assignment, error)
}

// PeriodSource yields calendar periods. Satisfied by the calendar store.
type PeriodSource interface {
	FindByYear(ctx context.Context, year int, modelCodes []string) ([]taxcal.Period, error)
}

// Service exposes the filing lifecycle to the transport and job layers.
type Service struct {
	repo        Repository
	periods     PeriodSource
	assignments AssignmentSource
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires the filing service.
func NewService(repo Repository, periods PeriodSource, assignments AssignmentSource, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, periods: periods, assignments: assignments, logger: logger, now: now}
}

// EnsureFilingsForYear creates a NOT_STARTED filing for every active
// client-obligation assignment and every period of that obligation in year,
// where one does not already exist. Re-running never duplicates.
func (s *Service) EnsureFilingsForYear(ctx context.Context, year int) (EnsureSummary, error) {
	summary := EnsureSummary{Year: year}

	assignments, err := s.assignments.ActiveAssignments(ctx)
	if err != nil {
		return summary, fmt.Errorf("filings: load assignments: %w", err)
	}
	if len(assignments) == 0 {
		return summary, nil
	}

	codeSet := make(map[string]bool)
	var codes []string
	for _, a := range assignments {
		if !codeSet[a.ModelCode] {
			codeSet[a.ModelCode] = true
			codes = append(codes, a.ModelCode)
		}
	}

	periods, err := s.periods.FindByYear(ctx, year, codes)
	if err != nil {
		return summary, fmt.Errorf("filings: load periods for %d: %w", year, err)
	}
	periodsByCode := make(map[string][]taxcal.Period)
	for _, p := range periods {
		periodsByCode[p.ModelCode] = append(periodsByCode[p.ModelCode], p)
	}

	for _, a := range assignments {
		for _, p := range periodsByCode[a.ModelCode] {
			_, err := s.repo.Create(ctx, Filing{
				ClientID:    a.ClientID,
				ModelCode:   p.ModelCode,
				PeriodLabel: p.Label,
				Year:        p.Year,
				Status:      StatusNotStarted,
			})
			switch {
			case errors.Is(err, shared.ErrDuplicateKey):
				summary.Skipped++
			case err != nil:
				summary.Errors = append(summary.Errors,
					fmt.Sprintf("%s %s %s %d: %v", a.ClientID, p.ModelCode, p.Label, p.Year, err))
			default:
				summary.Created++
			}
		}
	}

	s.logger.Info("ensure filings finished",
		slog.Int("year", year),
		slog.Int("created", summary.Created),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

// Get returns one filing with its status normalized.
func (s *Service) Get(ctx context.Context, id string) (Filing, error) {
	return s.repo.Get(ctx, id)
}

// List returns filings matching the filter.
func (s *Service) List(ctx context.Context, filter FilingFilter) ([]Filing, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus applies one validated transition. Presenting requires a
// submission instant and defaults it to now; leaving PRESENTED clears it
// unless the caller re-supplies one.
func (s *Service) UpdateStatus(ctx context.Context, id string, change StatusChange) (Filing, error) {
	if !KnownStatus(string(change.Status)) {
		return Filing{}, fmt.Errorf("%w: %q", ErrUnknownStatus, change.Status)
	}
	target := NormalizeStatus(string(change.Status))

	filing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Filing{}, err
	}
	if err := ValidateTransition(filing.Status, target, change.Reason); err != nil {
		return Filing{}, err
	}

	var submittedAt *time.Time
	switch {
	case target == StatusPresented:
		submittedAt = change.SubmittedAt
		if submittedAt == nil && filing.SubmittedAt != nil {
			submittedAt = filing.SubmittedAt
		}
		if submittedAt == nil {
			t := s.now()
			submittedAt = &t
		}
	default:
		// Only an explicit re-supply survives a move away from PRESENTED.
		submittedAt = change.SubmittedAt
	}

	return s.repo.UpdateStatus(ctx, id, target, submittedAt)
}

// BulkUpdateStatus applies the same transition to each filing independently.
// One item's failure never blocks the others.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, change StatusChange) []BulkOutcome {
	outcomes := make([]BulkOutcome, 0, len(ids))
	for _, id := range ids {
		_, err := s.UpdateStatus(ctx, id, change)
		outcome := BulkOutcome{FilingID: id, OK: err == nil}
		if err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// UpdateDetails sets the assignee and notes of a filing.
func (s *Service) UpdateDetails(ctx context.Context, id string, assigneeID *string, notes string) (Filing, error) {
	return s.repo.UpdateDetails(ctx, id, assigneeID, notes)
}

// Board groups filings by normalized status. Unrecognized stored values land
// in the NOT_STARTED column, so every record stays visible.
func (s *Service) Board(ctx context.Context, filter FilingFilter) (Board, error) {
	filings, err := s.repo.List(ctx, filter)
	if err != nil {
		return Board{}, err
	}

	board := Board{
		NotStarted: []Filing{},
		InProgress: []Filing{},
		Presented:  []Filing{},
	}
	for _, f := range filings {
		switch f.Status {
		case StatusInProgress:
			board.InProgress = append(board.InProgress, f)
		case StatusPresented:
			board.Presented = append(board.Presented, f)
		default:
			board.NotStarted = append(board.NotStarted, f)
		}
	}
	return board, nil
}
