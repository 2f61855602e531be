package taxcal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const importHeader = "Model Code,Period,Year,Start Date,End Date,Active,Locked\n" +
	"e.g. 303,e.g. 1T or M01,2000-2100,DD/MM/YYYY,DD/MM/YYYY,SI/NO,SI/NO\n"

func importCSV(t *testing.T, store PeriodStore, now time.Time, rows string) ImportResult {
	t.Helper()
	im := NewImporter(store, testLogger(), fixedClock(now))
	return im.Import(context.Background(), NewCSVRowReader(strings.NewReader(importHeader+rows)))
}

func TestImportCreatesPeriods(t *testing.T) {
	store := newMemoryPeriodStore()
	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1T,2025,01/04/2025,20/04/2025,SI,NO\n"+
			"303,2T,2025,01/07/2025,20/07/2025,SI,NO\n"+
			"111,M01,2025,01/02/2025,20/02/2025,SI,NO\n"+
			"130,1T,2025,01/04/2025,20/04/2025,SI,NO\n")

	require.True(t, result.Success)
	require.Equal(t, 4, result.Imported)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Duplicates)

	p, err := store.FindByKey(context.Background(), "303", "1T", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.April, 1), p.StartDate)
	require.Equal(t, PeriodPending, p.Status)
	require.True(t, p.Active)
	require.False(t, p.Locked)
}

func TestImportAppliesFlagDefaults(t *testing.T) {
	store := newMemoryPeriodStore()
	result := importCSV(t, store, date(2025, time.February, 10),
		"111,M01,2025,01/02/2025,20/02/2025,,\n")

	require.True(t, result.Success)
	require.Equal(t, 1, result.Imported)

	p, err := store.FindByKey(context.Background(), "111", "M01", 2025)
	require.NoError(t, err)
	require.True(t, p.Active)
	require.False(t, p.Locked)
}

func TestImportParsesISOAndSerialDates(t *testing.T) {
	store := newMemoryPeriodStore()
	// 45658 is the spreadsheet serial for 2025-01-01.
	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1T,2025,2025-04-01,2025-04-20,SI,NO\n"+
			"100,ANUAL,2024,45658,45677,SI,NO\n")

	require.True(t, result.Success)
	require.Equal(t, 2, result.Imported)

	annual, err := store.FindByKey(context.Background(), "100", "ANUAL", 2024)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 1), annual.StartDate)
	require.Equal(t, date(2025, time.January, 20), annual.EndDate)
}

func TestImportNormalizesCase(t *testing.T) {
	store := newMemoryPeriodStore()
	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1t,2025,01/04/2025,20/04/2025,si,no\n")

	require.Equal(t, 1, result.Imported)
	_, err := store.FindByKey(context.Background(), "303", "1T", 2025)
	require.NoError(t, err)
}

func TestImportRejectsInvalidRows(t *testing.T) {
	store := newMemoryPeriodStore()
	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1T,1999,01/04/2025,20/04/2025,SI,NO\n"+
			"303,2T,2025,31/02/2025,20/07/2025,SI,NO\n"+
			",3T,2025,01/10/2025,20/10/2025,SI,NO\n"+
			"303,4T,2025,20/01/2026,01/01/2026,SI,NO\n")

	require.False(t, result.Success)
	require.Zero(t, result.Imported)
	require.Len(t, result.Errors, 4)
	require.Contains(t, result.Errors[0], "row 3 [year]")
	require.Contains(t, result.Errors[1], "row 4 [startDate]")
	require.Contains(t, result.Errors[2], "row 5 [modelCode]")
	require.Contains(t, result.Errors[3], "row 6 [endDate]")
}

func TestImportRejectsDuplicateInFile(t *testing.T) {
	store := newMemoryPeriodStore()
	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1T,2025,01/04/2025,20/04/2025,SI,NO\n"+
			"303,1T,2025,01/04/2025,20/04/2025,SI,NO\n")

	require.True(t, result.Success)
	require.Equal(t, 1, result.Imported)
	require.Len(t, result.Duplicates, 1)
	require.Contains(t, result.Duplicates[0], "duplicate in file")
}

func TestImportNeverOverwritesExisting(t *testing.T) {
	store := newMemoryPeriodStore()
	original, err := store.Create(context.Background(), Period{
		ModelCode: "303", Label: "1T", Year: 2025,
		StartDate: date(2025, time.April, 1), EndDate: date(2025, time.April, 20),
		Status: PeriodPending, Active: true,
	})
	require.NoError(t, err)

	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1T,2025,05/04/2025,25/04/2025,SI,NO\n")

	// Only duplicates and no errors still counts as a successful run.
	require.True(t, result.Success)
	require.Zero(t, result.Imported)
	require.Len(t, result.Duplicates, 1)
	require.Contains(t, result.Duplicates[0], "303 - 1T - 2025 (already exists)")

	kept, err := store.FindByID(context.Background(), original.ID)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.April, 1), kept.StartDate)
}

func TestImportFailureWhenOnlyErrors(t *testing.T) {
	store := newMemoryPeriodStore()
	result := importCSV(t, store, date(2025, time.February, 10),
		"303,1T,bad-year,01/04/2025,20/04/2025,SI,NO\n")

	require.False(t, result.Success)
	require.Zero(t, result.Imported)
	require.NotEmpty(t, result.Errors)
}

func TestTemplateRoundTripsThroughImport(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteTemplate(NewCSVWorkbook(&buf), DefaultCatalog()))

	out := buf.String()
	require.Contains(t, out, "# Instructions")
	require.Contains(t, out, "# Periods")
	require.Contains(t, out, "# Models")
	require.Contains(t, out, "Model Code,Period,Year,Start Date,End Date,Active,Locked")

	// Uploading the downloaded template as-is imports exactly the example
	// rows; the instructions, headers and model reference never leak into
	// the data.
	store := newMemoryPeriodStore()
	im := NewImporter(store, testLogger(), fixedClock(date(2025, time.February, 10)))
	result := im.Import(context.Background(), NewCSVRowReader(strings.NewReader(out)))

	require.True(t, result.Success)
	require.Equal(t, 4, result.Imported)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Duplicates)

	q1, err := store.FindByKey(context.Background(), "303", "1T", 2025)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.April, 1), q1.StartDate)
	_, err = store.FindByKey(context.Background(), "130", "1T", 2025)
	require.NoError(t, err)
}

func TestImportSkipsHeadersByContentNotPosition(t *testing.T) {
	// Header present but hint row deleted: the first data row survives.
	store := newMemoryPeriodStore()
	im := NewImporter(store, testLogger(), fixedClock(date(2025, time.February, 10)))
	result := im.Import(context.Background(), NewCSVRowReader(strings.NewReader(
		"Model Code,Period,Year,Start Date,End Date,Active,Locked\n"+
			"303,1T,2025,01/04/2025,20/04/2025,SI,NO\n")))

	require.True(t, result.Success)
	require.Equal(t, 1, result.Imported)
	require.Empty(t, result.Errors)

	// No header at all: every row is data.
	bare := newMemoryPeriodStore()
	im = NewImporter(bare, testLogger(), fixedClock(date(2025, time.February, 10)))
	result = im.Import(context.Background(), NewCSVRowReader(strings.NewReader(
		"111,M01,2025,01/02/2025,20/02/2025,SI,NO\n")))

	require.True(t, result.Success)
	require.Equal(t, 1, result.Imported)
	require.Empty(t, result.Errors)
}
