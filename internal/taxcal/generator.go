package taxcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

// PeriodStore abstracts persistence of calendar periods. Upsert must be
// atomic on the natural composite key so concurrent generator runs cannot
// lose updates.
type PeriodStore interface {
	FindByYear(ctx context.Context, year int, modelCodes []string) ([]Period, error)
	FindByKey(ctx context.Context, modelCode, label string, year int) (Period, error)
	FindByID(ctx context.Context, id string) (Period, error)
	List(ctx context.Context, filter PeriodFilter) ([]Period, error)
	Upsert(ctx context.Context, period Period) (Period, error)
	Create(ctx context.Context, period Period) (Period, error)
	Delete(ctx context.Context, id string) error
	SetFlags(ctx context.Context, id string, active, locked bool) (Period, error)
}

// Generator synthesizes the expected period set for a year and reconciles it
// against the store.
type Generator struct {
	store  PeriodStore
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator constructs a Generator. A nil now falls back to time.Now.
func NewGenerator(store PeriodStore, logger *slog.Logger, now func() time.Time) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{store: store, logger: logger, now: now}
}

// entry is one expected period before reconciliation.
type entry struct {
	ModelCode string
	Label     string
	Year      int
	Start     time.Time
	End       time.Time
}

func dateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// buildEntries synthesizes the expected windows for one model code.
//
// Filing windows follow the agency rules: a monthly slice files the 1st to the
// 20th of the following month (December files January 1-30 of the next year),
// a quarterly slice files 1-20 of the month after the quarter (4T files
// January 1-30 of the next year), the annual summary files January 1-31 of the
// next year, and corporate pre-payments add April, October and December
// windows ending the 20th.
func buildEntries(year int, code string, cadences []Cadence) []entry {
	var entries []entry
	push := func(label string, start, end time.Time) {
		entries = append(entries, entry{ModelCode: code, Label: label, Year: year, Start: start, End: end})
	}

	for _, cadence := range cadences {
		switch cadence {
		case CadenceMonthly:
			for month := 1; month <= 12; month++ {
				label := fmt.Sprintf("M%02d", month)
				dueYear, dueMonth := year, time.Month(month+1)
				endDay := 20
				if month == 12 {
					dueYear, dueMonth = year+1, time.January
					endDay = 30
				}
				push(label, dateOf(dueYear, dueMonth, 1), dateOf(dueYear, dueMonth, endDay))
			}
		case CadenceQuarterly:
			push("1T", dateOf(year, time.April, 1), dateOf(year, time.April, 20))
			push("2T", dateOf(year, time.July, 1), dateOf(year, time.July, 20))
			push("3T", dateOf(year, time.October, 1), dateOf(year, time.October, 20))
			push("4T", dateOf(year+1, time.January, 1), dateOf(year+1, time.January, 30))
		case CadenceAnnual:
			push("ANUAL", dateOf(year+1, time.January, 1), dateOf(year+1, time.January, 31))
		case CadenceInstallment:
			for _, month := range []time.Month{time.April, time.October, time.December} {
				label := fmt.Sprintf("M%02d", int(month))
				push(label, dateOf(year, month, 1), dateOf(year, month, 20))
			}
		}
	}
	return entries
}

// SyncYear reconciles the stored calendar for year against the expected set
// derived from the catalog: missing rows are created, changed rows updated,
// stale rows deleted. Locked rows are exempt from update and delete. The run
// is idempotent; per-row store failures are accumulated and never abort the
// batch.
func (g *Generator) SyncYear(ctx context.Context, year int, catalog Catalog) (SyncSummary, error) {
	summary := SyncSummary{Year: year}
	if len(catalog) == 0 {
		return summary, fmt.Errorf("taxcal: empty obligation catalog for %d", year)
	}

	codes := catalog.Codes()
	var raw []entry
	for _, code := range codes {
		raw = append(raw, buildEntries(year, code, catalog.CadencesFor(code))...)
	}

	// Overlapping cadences on one model (monthly plus installment months)
	// land on the same key; the first window wins so each row is written once.
	expected := make(map[string]entry, len(raw))
	entries := raw[:0]
	for _, e := range raw {
		key := PeriodKey(e.ModelCode, e.Label, e.Year)
		if _, dup := expected[key]; dup {
			continue
		}
		expected[key] = e
		entries = append(entries, e)
	}

	existing, err := g.store.FindByYear(ctx, year, codes)
	if err != nil {
		return summary, fmt.Errorf("taxcal: load existing periods for %d: %w", year, err)
	}

	existingByKey := make(map[string]Period, len(existing))
	for _, row := range existing {
		key := row.Key()
		existingByKey[key] = row

		if _, wanted := expected[key]; wanted {
			continue
		}
		if row.Locked {
			summary.Skipped++
			continue
		}
		if err := g.store.Delete(ctx, row.ID); err != nil {
			if errors.Is(err, shared.ErrReferenced) {
				// Dependent filings keep the row alive; deletion stays best-effort.
				g.logger.Warn("skip stale period with dependent filings",
					slog.String("key", key))
				summary.Skipped++
				continue
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("delete %s: %v", key, err))
			continue
		}
		summary.Removed++
	}

	now := g.now()
	for _, e := range entries {
		key := PeriodKey(e.ModelCode, e.Label, e.Year)
		derived := Classify(e.Start, e.End, now)
		next := Period{
			ModelCode:   e.ModelCode,
			Label:       e.Label,
			Year:        e.Year,
			StartDate:   e.Start,
			EndDate:     e.End,
			Status:      derived.Status,
			DaysToStart: derived.DaysToStart,
			DaysToEnd:   derived.DaysToEnd,
			Active:      true,
		}

		current, exists := existingByKey[key]
		if exists {
			if current.Locked {
				summary.Skipped++
				continue
			}
			if periodUpToDate(current, next) {
				continue
			}
			next.ID = current.ID
		}

		if _, err := g.store.Upsert(ctx, next); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("upsert %s: %v", key, err))
			continue
		}
		if exists {
			summary.Updated++
		} else {
			summary.Created++
		}
	}

	return summary, nil
}

// periodUpToDate reports whether the stored row already matches the expected
// window and derived state, so the generator can skip the write.
func periodUpToDate(current, next Period) bool {
	return current.Active == next.Active &&
		current.StartDate.Equal(next.StartDate) &&
		current.EndDate.Equal(next.EndDate) &&
		current.Status == next.Status &&
		intPtrEqual(current.DaysToStart, next.DaysToStart) &&
		intPtrEqual(current.DaysToEnd, next.DaysToEnd)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
