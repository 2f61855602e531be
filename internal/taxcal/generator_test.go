package taxcal

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func quarterlyCatalog() Catalog {
	return Catalog{
		"303": {Code: "303", Name: "VAT self-assessment", Cadences: []Cadence{CadenceQuarterly, CadenceAnnual}},
	}
}

func TestSyncYearCreatesQuarterlyAndAnnualWindows(t *testing.T) {
	store := newMemoryPeriodStore()
	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))

	summary, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Equal(t, 5, summary.Created)
	require.Zero(t, summary.Updated)
	require.Zero(t, summary.Removed)
	require.Empty(t, summary.Errors)

	q1, err := store.FindByKey(context.Background(), "303", "1T", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.April, 1), q1.StartDate)
	require.Equal(t, date(2025, time.April, 20), q1.EndDate)
	require.Equal(t, PeriodPending, q1.Status)
	require.True(t, q1.Active)

	// Fourth quarter files in January of the following year.
	q4, err := store.FindByKey(context.Background(), "303", "4T", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2026, time.January, 1), q4.StartDate)
	require.Equal(t, date(2026, time.January, 30), q4.EndDate)

	annual, err := store.FindByKey(context.Background(), "303", "ANUAL", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2026, time.January, 1), annual.StartDate)
	require.Equal(t, date(2026, time.January, 31), annual.EndDate)
}

func TestSyncYearMonthlyDecemberRollsOver(t *testing.T) {
	store := newMemoryPeriodStore()
	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))

	catalog := Catalog{
		"111": {Code: "111", Name: "Withholdings on earned income", Cadences: []Cadence{CadenceMonthly}},
	}
	summary, err := gen.SyncYear(context.Background(), 2025, catalog)
	require.NoError(t, err)
	require.Equal(t, 12, summary.Created)

	jan, err := store.FindByKey(context.Background(), "111", "M01", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.February, 1), jan.StartDate)
	require.Equal(t, date(2025, time.February, 20), jan.EndDate)

	dec, err := store.FindByKey(context.Background(), "111", "M12", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2026, time.January, 1), dec.StartDate)
	require.Equal(t, date(2026, time.January, 30), dec.EndDate)
}

func TestSyncYearInstallmentWindows(t *testing.T) {
	store := newMemoryPeriodStore()
	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))

	catalog := Catalog{
		"202": {Code: "202", Name: "Corporate tax installments", Cadences: []Cadence{CadenceInstallment}},
	}
	summary, err := gen.SyncYear(context.Background(), 2025, catalog)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Created)

	for _, tc := range []struct {
		label string
		month time.Month
	}{
		{"M04", time.April},
		{"M10", time.October},
		{"M12", time.December},
	} {
		p, err := store.FindByKey(context.Background(), "202", tc.label, 2025)
		require.NoError(t, err)
		require.Equal(t, date(2025, tc.month, 1), p.StartDate)
		require.Equal(t, date(2025, tc.month, 20), p.EndDate)
	}
}

func TestSyncYearOverlappingCadencesWriteOnce(t *testing.T) {
	store := newMemoryPeriodStore()
	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))

	// Monthly and installment share the M04/M10/M12 labels; the first
	// cadence's window wins and each key counts once.
	catalog := Catalog{
		"202": {Code: "202", Name: "Corporate tax installments", Cadences: []Cadence{CadenceMonthly, CadenceInstallment}},
	}
	summary, err := gen.SyncYear(context.Background(), 2025, catalog)
	require.NoError(t, err)
	require.Equal(t, 12, summary.Created)
	require.Empty(t, summary.Errors)

	// M04 keeps the monthly window, filing 1-20 of the following month.
	p, err := store.FindByKey(context.Background(), "202", "M04", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.May, 1), p.StartDate)
	require.Equal(t, date(2025, time.May, 20), p.EndDate)

	second, err := gen.SyncYear(context.Background(), 2025, catalog)
	require.NoError(t, err)
	require.Zero(t, second.Created)
	require.Zero(t, second.Updated)
	require.Zero(t, second.Removed)
}

func TestSyncYearIdempotentSameDay(t *testing.T) {
	store := newMemoryPeriodStore()
	clock := fixedClock(date(2025, time.February, 10))
	gen := NewGenerator(store, testLogger(), clock)

	first, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Equal(t, 5, first.Created)

	second, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Zero(t, second.Created)
	require.Zero(t, second.Updated)
	require.Zero(t, second.Removed)
	require.Empty(t, second.Errors)
}

func TestSyncYearRefreshesStaleTemporalState(t *testing.T) {
	store := newMemoryPeriodStore()
	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))
	_, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)

	// A later run with the clock inside the 1T window updates the snapshot.
	later := NewGenerator(store, testLogger(), fixedClock(date(2025, time.April, 5)))
	summary, err := later.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Positive(t, summary.Updated)

	q1, err := store.FindByKey(context.Background(), "303", "1T", 2025)
	require.NoError(t, err)
	require.Equal(t, PeriodOpen, q1.Status)
}

func TestSyncYearRemovesStaleRows(t *testing.T) {
	store := newMemoryPeriodStore()
	_, err := store.Create(context.Background(), Period{
		ModelCode: "303", Label: "5T", Year: 2025,
		StartDate: date(2025, time.May, 1), EndDate: date(2025, time.May, 20),
		Status: PeriodPending, Active: true,
	})
	require.NoError(t, err)

	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))
	summary, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Removed)

	_, err = store.FindByKey(context.Background(), "303", "5T", 2025)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSyncYearLockedRowsAreUntouched(t *testing.T) {
	store := newMemoryPeriodStore()
	manual := Period{
		ModelCode: "303", Label: "1T", Year: 2025,
		StartDate: date(2025, time.March, 15), EndDate: date(2025, time.April, 30),
		Status: PeriodPending, Active: true, Locked: true,
	}
	created, err := store.Create(context.Background(), manual)
	require.NoError(t, err)

	stale := Period{
		ModelCode: "303", Label: "5T", Year: 2025,
		StartDate: date(2025, time.May, 1), EndDate: date(2025, time.May, 20),
		Status: PeriodPending, Active: true, Locked: true,
	}
	_, err = store.Create(context.Background(), stale)
	require.NoError(t, err)

	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))
	summary, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Skipped)

	kept, err := store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.March, 15), kept.StartDate)
	require.Equal(t, date(2025, time.April, 30), kept.EndDate)

	_, err = store.FindByKey(context.Background(), "303", "5T", 2025)
	require.NoError(t, err)
}

func TestSyncYearKeepsRowsWithDependentFilings(t *testing.T) {
	store := newMemoryPeriodStore()
	stale, err := store.Create(context.Background(), Period{
		ModelCode: "303", Label: "5T", Year: 2025,
		StartDate: date(2025, time.May, 1), EndDate: date(2025, time.May, 20),
		Status: PeriodPending, Active: true,
	})
	require.NoError(t, err)
	store.referenced[stale.ID] = true

	gen := NewGenerator(store, testLogger(), fixedClock(date(2025, time.February, 10)))
	summary, err := gen.SyncYear(context.Background(), 2025, quarterlyCatalog())
	require.NoError(t, err)
	require.Zero(t, summary.Removed)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, summary.Errors)
}

func TestSyncYearEmptyCatalogFails(t *testing.T) {
	gen := NewGenerator(newMemoryPeriodStore(), testLogger(), fixedClock(date(2025, time.February, 10)))
	_, err := gen.SyncYear(context.Background(), 2025, Catalog{})
	require.Error(t, err)
}
