// Package filings manages the per-client lifecycle of tax obligations: one
// filing per (client, model, period) with a three-state workflow.
package filings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FilingStatus is the canonical three-state workflow position.
type FilingStatus string

const (
	StatusNotStarted FilingStatus = "NOT_STARTED"
	StatusInProgress FilingStatus = "IN_PROGRESS"
	StatusPresented  FilingStatus = "PRESENTED"
)

// ErrInvalidTransition is returned when a requested status change is not
// allowed by the workflow.
var ErrInvalidTransition = errors.New("filings: invalid status transition")

// ErrReasonRequired is returned when a correction leaving PRESENTED comes
// without a justification.
var ErrReasonRequired = errors.New("filings: correction reason required")

// legacyStatuses maps every raw spelling seen in historical data to the
// canonical enum. Storage is never trusted to be canonical; normalization
// runs at every read boundary.
var legacyStatuses = map[string]FilingStatus{
	"NOT_STARTED": StatusNotStarted,
	"PENDIENTE":   StatusNotStarted,
	"PENDING":     StatusNotStarted,
	"IN_PROGRESS": StatusInProgress,
	"CALCULADO":   StatusInProgress,
	"CALCULATED":  StatusInProgress,
	"PRESENTED":   StatusPresented,
	"PRESENTADO":  StatusPresented,
}

// NormalizeStatus maps a raw stored value to the canonical enum. Unknown
// values fall back to NOT_STARTED so a board view never drops a record.
func NormalizeStatus(raw string) FilingStatus {
	if s, ok := legacyStatuses[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusNotStarted
}

// KnownStatus reports whether raw maps to a recognized status spelling.
func KnownStatus(raw string) bool {
	_, ok := legacyStatuses[strings.ToUpper(strings.TrimSpace(raw))]
	return ok
}

// ValidateTransition enforces the workflow: NOT_STARTED -> IN_PROGRESS ->
// PRESENTED, with IN_PROGRESS -> NOT_STARTED as a plain revert and any move
// out of PRESENTED treated as a correction that needs a reason. Same-state
// updates are no-ops and always allowed.
func ValidateTransition(from, to FilingStatus, reason string) error {
	if from == to {
		return nil
	}
	if from == StatusPresented {
		if strings.TrimSpace(reason) == "" {
			return ErrReasonRequired
		}
		return nil
	}
	switch {
	case from == StatusNotStarted && to == StatusInProgress:
		return nil
	case from == StatusInProgress && to == StatusPresented:
		return nil
	case from == StatusInProgress && to == StatusNotStarted:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Filing is one client's instance of satisfying a period. The natural key is
// (ClientID, ModelCode, PeriodLabel, Year); the last three reference a period
// by its own natural key.
type Filing struct {
	ID          string       `json:"id"`
	ClientID    string       `json:"clientId"`
	ClientName  string       `json:"clientName,omitempty"`
	ModelCode   string       `json:"modelCode"`
	PeriodLabel string       `json:"period"`
	Year        int          `json:"year"`
	PeriodStart time.Time    `json:"periodStart"`
	PeriodEnd   time.Time    `json:"periodEnd"`
	Status      FilingStatus `json:"status"`
	SubmittedAt *time.Time   `json:"submittedAt,omitempty"`
	AssigneeID  *string      `json:"assigneeId,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Key returns the natural composite key of the filing.
func (f Filing) Key() string {
	return fmt.Sprintf("%s:%s:%s:%d", f.ClientID, f.ModelCode, f.PeriodLabel, f.Year)
}

// FilingFilter narrows filing listings.
type FilingFilter struct {
	Year        int
	ModelCode   string
	PeriodLabel string
	ClientID    string
	AssigneeID  string
	Status      FilingStatus
}

// EnsureSummary reports the outcome of an ensure-filings run.
type EnsureSummary struct {
	Year    int      `json:"year"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// StatusChange is one requested transition.
type StatusChange struct {
	Status      FilingStatus `json:"status"`
	SubmittedAt *time.Time   `json:"submittedAt,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// BulkOutcome is the per-item result of a bulk transition.
type BulkOutcome struct {
	FilingID string `json:"filingId"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// Board groups filings by normalized status for presentation.
type Board struct {
	NotStarted []Filing `json:"notStarted"`
	InProgress []Filing `json:"inProgress"`
	Presented  []Filing `json:"presented"`
}
