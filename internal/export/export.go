// Package export writes the result document as an Excel workbook, a CSV
// file, or a SQLite database.
//
// A document has two sheets (results and diagnostics) and one run record.
// The workbook carries both sheets; CSV carries the results only; SQLite
// gets results, diagnostics and runs tables keyed by run id.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/campaigndelta/internal/config"
)

// Sheet is a header plus rows of cell values. Supported cell types are
// nil (blank), string, int64, float64 and bool.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// RunRecord summarizes one run for the runs table.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	OldFile      string
	NewFile      string
	CostFormula  string
	Rows         int
	Matched      int
	LookupMisses int
	Diagnostics  int
	TotalCost    float64
}

// Document is everything one run writes.
type Document struct {
	Results     Sheet
	Diagnostics Sheet
	Run         RunRecord
}

// ContentType returns the MIME type of a format.
func ContentType(format config.OutputFormat) string {
	switch format {
	case config.FormatCSV:
		return "text/csv; charset=utf-8"
	case config.FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Write encodes doc to w.
func Write(w io.Writer, format config.OutputFormat, doc *Document) error {
	switch format {
	case config.FormatXLSX, config.FormatAuto:
		return writeXLSX(w, doc)
	case config.FormatCSV:
		return writeCSV(w, &doc.Results)
	case config.FormatSQLite:
		return writeSQLiteTo(w, doc)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// WriteFile writes doc to path, replacing any existing file.
func WriteFile(path string, format config.OutputFormat, doc *Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if format == config.FormatSQLite {
		return writeSQLite(path, doc)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, format, doc); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
