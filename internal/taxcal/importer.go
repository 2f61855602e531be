package taxcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

const (
	minImportYear = 2000
	maxImportYear = 2100
)

// importRow is one parsed data row of the import document.
type importRow struct {
	ModelCode string
	Label     string
	Year      int
	StartDate time.Time
	EndDate   time.Time
	Active    bool
	Locked    bool
}

// Importer validates and ingests tabular period rows. It never overwrites
// existing rows; reconciliation of known periods is the generator's job.
type Importer struct {
	store  PeriodStore
	logger *slog.Logger
	now    func() time.Time
}

// NewImporter constructs an Importer. A nil now falls back to time.Now.
func NewImporter(store PeriodStore, logger *slog.Logger, now func() time.Time) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Importer{store: store, logger: logger, now: now}
}

// Import reads the document row by row and ingests every valid non-duplicate
// row. Rows are matched against the template structure by content, not by
// position: sheet markers confine parsing to the data sheet, and the column
// header and format-hint rows are skipped wherever they appear, so both the
// downloaded template and a bare hand-written CSV ingest cleanly. Row failures
// never abort the batch; the result always reports what succeeded.
func (im *Importer) Import(ctx context.Context, reader RowReader) ImportResult {
	result := ImportResult{Errors: []string{}, Duplicates: []string{}}

	var rows []importRow
	seen := make(map[string]bool)
	rowNumber := 0
	// Empty until a marker row appears, so markerless files are all data.
	sheet := ""

	for {
		cells, ok, err := reader.Next()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("read document: %v", err))
			break
		}
		if !ok {
			break
		}
		rowNumber++
		if name, isMarker := sheetMarker(cells); isMarker {
			sheet = name
			continue
		}
		if sheet != "" && sheet != templateDataSheet {
			continue
		}
		if blankRow(cells) || headerRow(cells) || hintRow(cells) {
			continue
		}

		row, errs := parseImportRow(cells, rowNumber)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}

		key := PeriodKey(row.ModelCode, row.Label, row.Year)
		if seen[key] {
			result.Duplicates = append(result.Duplicates,
				fmt.Sprintf("row %d: duplicate in file (%s - %s - %d)", rowNumber, row.ModelCode, row.Label, row.Year))
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}

	now := im.now()
	for _, row := range rows {
		existing, err := im.store.FindByKey(ctx, row.ModelCode, row.Label, row.Year)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("import %s - %s - %d: %v", row.ModelCode, row.Label, row.Year, err))
			continue
		}
		if err == nil && existing.ID != "" {
			result.Duplicates = append(result.Duplicates,
				fmt.Sprintf("%s - %s - %d (already exists)", row.ModelCode, row.Label, row.Year))
			continue
		}

		derived := Classify(row.StartDate, row.EndDate, now)
		_, err = im.store.Create(ctx, Period{
			ModelCode:   row.ModelCode,
			Label:       row.Label,
			Year:        row.Year,
			StartDate:   row.StartDate,
			EndDate:     row.EndDate,
			Status:      derived.Status,
			DaysToStart: derived.DaysToStart,
			DaysToEnd:   derived.DaysToEnd,
			Active:      row.Active,
			Locked:      row.Locked,
		})
		if errors.Is(err, shared.ErrDuplicateKey) {
			// Another writer beat us to the key between the check and the insert.
			result.Duplicates = append(result.Duplicates,
				fmt.Sprintf("%s - %s - %d (already exists)", row.ModelCode, row.Label, row.Year))
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("import %s - %s - %d: %v", row.ModelCode, row.Label, row.Year, err))
			continue
		}
		result.Imported++
	}

	result.Success = result.Imported > 0 ||
		(len(result.Errors) == 0 && len(result.Duplicates) > 0)
	return result
}

// sheetMarker reports whether the row is a workbook sheet marker as written
// by the CSV workbook, and returns the sheet name.
func sheetMarker(cells []string) (string, bool) {
	if len(cells) != 1 {
		return "", false
	}
	name, found := strings.CutPrefix(strings.TrimSpace(cells[0]), "# ")
	return name, found
}

func blankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// headerRow matches the template's column-header row by its leading cells, so
// a file whose author dropped the header keeps its first data row.
func headerRow(cells []string) bool {
	return strings.EqualFold(cellAt(cells, 0), templateColumns[0]) &&
		strings.EqualFold(cellAt(cells, 1), templateColumns[1])
}

// hintRow matches the template's format-hint row, whose cells all start with
// an example or placeholder rather than a model code.
func hintRow(cells []string) bool {
	first := strings.ToLower(cellAt(cells, 0))
	return strings.HasPrefix(first, "e.g.") || strings.HasPrefix(first, "ej.")
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func parseImportRow(cells []string, rowNumber int) (importRow, []string) {
	var errs []string
	fail := func(field, message string) {
		errs = append(errs, fmt.Sprintf("row %d [%s]: %s", rowNumber, field, message))
	}

	row := importRow{
		ModelCode: strings.ToUpper(cellAt(cells, 0)),
		Label:     strings.ToUpper(cellAt(cells, 1)),
	}

	if row.ModelCode == "" {
		fail("modelCode", "model code is required")
	}
	if row.Label == "" {
		fail("period", "period label is required")
	}

	year, err := parseYear(cellAt(cells, 2))
	if err != nil || year < minImportYear || year > maxImportYear {
		fail("year", fmt.Sprintf("year must be between %d and %d", minImportYear, maxImportYear))
	}
	row.Year = year

	start, err := parseDateCell(cellAt(cells, 3))
	if err != nil {
		fail("startDate", err.Error())
	}
	row.StartDate = start

	end, err := parseDateCell(cellAt(cells, 4))
	if err != nil {
		fail("endDate", err.Error())
	}
	row.EndDate = end

	if !row.StartDate.IsZero() && !row.EndDate.IsZero() && !row.EndDate.After(row.StartDate) {
		fail("endDate", "end date must be after start date")
	}

	row.Active = parseBoolCell(cellAt(cells, 5), true)
	row.Locked = parseBoolCell(cellAt(cells, 6), false)

	return row, errs
}

func parseYear(value string) (int, error) {
	if value == "" {
		return 0, errors.New("year is required")
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f), nil
	}
	return 0, fmt.Errorf("invalid year %q", value)
}

var (
	dayMonthYearRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// spreadsheetEpoch anchors numeric date serials. Serial day 2 maps to
// 1900-01-01, matching the host spreadsheet's 1900 date system.
var spreadsheetEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

func parseDateCell(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("date is required")
	}

	if m := dayMonthYearRe.FindStringSubmatch(value); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day)
	}
	if m := isoDateRe.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day)
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		return spreadsheetEpoch.AddDate(0, 0, int(serial)-2), nil
	}

	return time.Time{}, fmt.Errorf("invalid date %q, use DD/MM/YYYY or YYYY-MM-DD", value)
}

func buildDate(year, month, day int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date %02d/%02d/%04d", day, month, year)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject normalized overflow such as 31/02.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid date %02d/%02d/%04d", day, month, year)
	}
	return t, nil
}

// parseBoolCell accepts localized yes/no tokens alongside true/false and 1/0.
func parseBoolCell(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "si", "sí", "yes", "true", "1":
		return true
	default:
		return false
	}
}
