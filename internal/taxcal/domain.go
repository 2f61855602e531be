package taxcal

import (
	"fmt"
	"time"
)

// Cadence is the recurrence pattern a tax model follows.
type Cadence string

const (
	CadenceMonthly   Cadence = "MONTHLY"
	CadenceQuarterly Cadence = "QUARTERLY"
	CadenceAnnual    Cadence = "ANNUAL"
	// CadenceInstallment marks the fractional pre-payment windows used by
	// corporate income tax (model 202): April, October and December.
	CadenceInstallment Cadence = "SPECIAL_INSTALLMENT"
)

// Period is one concrete submission window of a tax model for a year.
// The (ModelCode, Label, Year) triple is the natural key.
type Period struct {
	ID          string       `json:"id"`
	ModelCode   string       `json:"modelCode"`
	Label       string       `json:"period"`
	Year        int          `json:"year"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
	Status      PeriodStatus `json:"status"`
	DaysToStart *int         `json:"daysToStart,omitempty"`
	DaysToEnd   *int         `json:"daysToEnd,omitempty"`
	Active      bool         `json:"active"`
	Locked      bool         `json:"locked"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Key returns the natural composite key of the period.
func (p Period) Key() string {
	return PeriodKey(p.ModelCode, p.Label, p.Year)
}

// PeriodKey builds the natural composite key shared by the generator and the
// import pipeline, so both agree on what counts as "the same period".
func PeriodKey(modelCode, label string, year int) string {
	return fmt.Sprintf("%s:%s:%d", modelCode, label, year)
}

// ObligationType is one category of recurring filing, identified by its AEAT
// model code.
type ObligationType struct {
	Code     string
	Name     string
	Cadences []Cadence
}

// HasCadence reports whether the model supports the given cadence.
func (o ObligationType) HasCadence(c Cadence) bool {
	for _, candidate := range o.Cadences {
		if candidate == c {
			return true
		}
	}
	return false
}

// PeriodFilter narrows period listings.
type PeriodFilter struct {
	Year      int
	ModelCode string
	Status    PeriodStatus
}

// SyncSummary reports the outcome of one calendar synchronization run.
// Errors holds per-row failures; the summary is returned even when some rows
// fail.
type SyncSummary struct {
	Year    int      `json:"year"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Removed int      `json:"removed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportResult reports the outcome of a bulk period import.
type ImportResult struct {
	Imported   int      `json:"imported"`
	Errors     []string `json:"errors"`
	Duplicates []string `json:"duplicates"`
	Success    bool     `json:"success"`
}
