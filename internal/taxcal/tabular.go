package taxcal

import (
	"encoding/csv"
	"errors"
	"io"
)

// RowReader iterates over the rows of a tabular import document. The engine
// never touches cell-level spreadsheet primitives; any format that can yield
// string cells can feed the importer.
type RowReader interface {
	// Next returns the next row, or ok=false once the document is exhausted.
	Next() (cells []string, ok bool, err error)
}

// WorkbookWriter receives named sheets of tabular output. Template and report
// exports are expressed against this interface so the serialization format
// stays swappable.
type WorkbookWriter interface {
	Sheet(name string) error
	Row(cells ...string) error
	Flush() error
}

type csvRowReader struct {
	reader *csv.Reader
}

// NewCSVRowReader wraps r as a RowReader over comma-separated rows with
// relaxed field counts.
func NewCSVRowReader(r io.Reader) RowReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &csvRowReader{reader: cr}
}

func (r *csvRowReader) Next() ([]string, bool, error) {
	record, err := r.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

type csvWorkbook struct {
	writer     *csv.Writer
	firstSheet bool
}

// NewCSVWorkbook writes sheets as CSV sections separated by a marker row, the
// closest flat-file equivalent of a multi-sheet workbook.
func NewCSVWorkbook(w io.Writer) WorkbookWriter {
	return &csvWorkbook{writer: csv.NewWriter(w), firstSheet: true}
}

func (w *csvWorkbook) Sheet(name string) error {
	if !w.firstSheet {
		if err := w.writer.Write([]string{}); err != nil {
			return err
		}
	}
	w.firstSheet = false
	return w.writer.Write([]string{"# " + name})
}

func (w *csvWorkbook) Row(cells ...string) error {
	return w.writer.Write(cells)
}

func (w *csvWorkbook) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}
