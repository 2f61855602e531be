package taxcal

import (
	"fmt"
	"strings"
)

// templateDataSheet names the sheet carrying period rows. The importer keys
// on it to ignore the instructions and model reference sheets.
const templateDataSheet = "Periods"

var templateColumns = []string{
	"Model Code", "Period", "Year", "Start Date", "End Date", "Active", "Locked",
}

var templateHints = []string{
	"e.g. 303", "e.g. 1T or M01", "2000-2100", "DD/MM/YYYY", "DD/MM/YYYY", "SI/NO", "SI/NO",
}

// stickyWorkbook wraps a WorkbookWriter and remembers the first error so
// sheet-building code can stay linear.
type stickyWorkbook struct {
	w   WorkbookWriter
	err error
}

func (s *stickyWorkbook) sheet(name string) {
	if s.err == nil {
		s.err = s.w.Sheet(name)
	}
}

func (s *stickyWorkbook) row(cells ...string) {
	if s.err == nil {
		s.err = s.w.Row(cells...)
	}
}

// WriteTemplate emits the import document: a short instructions sheet, the
// data sheet pre-filled with example rows, and a model reference sheet built
// from the catalog so users do not have to guess valid codes.
func WriteTemplate(w WorkbookWriter, catalog Catalog) error {
	sw := &stickyWorkbook{w: w}

	sw.sheet("Instructions")
	sw.row("Tax period import template")
	sw.row("")
	sw.row("Fill the Periods sheet below the two header rows, one period per row.")
	sw.row("Dates accept DD/MM/YYYY or YYYY-MM-DD.")
	sw.row("Active and Locked accept SI/NO; blank defaults to Active=SI, Locked=NO.")
	sw.row("Existing periods are never overwritten; duplicates are reported and skipped.")
	sw.row("Valid model codes and their cadences are listed on the Models sheet.")

	sw.sheet(templateDataSheet)
	sw.row(templateColumns...)
	sw.row(templateHints...)
	sw.row("303", "1T", "2025", "01/04/2025", "20/04/2025", "SI", "NO")
	sw.row("303", "2T", "2025", "01/07/2025", "20/07/2025", "SI", "NO")
	sw.row("111", "M01", "2025", "01/02/2025", "20/02/2025", "SI", "NO")
	sw.row("130", "1T", "2025", "01/04/2025", "20/04/2025", "SI", "NO")

	sw.sheet("Models")
	sw.row("Code", "Name", "Cadences")
	for _, code := range catalog.Codes() {
		ot := catalog[code]
		cadences := make([]string, 0, len(ot.Cadences))
		for _, c := range ot.Cadences {
			cadences = append(cadences, string(c))
		}
		sw.row(ot.Code, ot.Name, strings.Join(cadences, ", "))
	}

	if sw.err != nil {
		return fmt.Errorf("taxcal: write template: %w", sw.err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("taxcal: write template: %w", err)
	}
	return nil
}
