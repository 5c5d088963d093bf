package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies an input file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrNoHeader is returned when the header offset skips past every row.
var ErrNoHeader = errors.New("no header row after the header offset")

// Options controls how a table is located inside a file.
type Options struct {
	Sheet        string // Workbook sheet name; empty selects the first sheet.
	HeaderOffset int    // Leading non-data rows to skip before the header.
}

// Table is a header plus data rows. Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// FormatFromPath infers the input format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported input file %q (use .xlsx or .csv)", filepath.Base(path))
}

// ReadFile opens path and reads its table.
func ReadFile(path string, opts Options) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format, opts)
}

// Read reads a table of the given format from r.
func Read(r io.Reader, format Format, opts Options) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r, opts.Sheet)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buildTable(rows, opts.HeaderOffset)
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// buildTable drops the offset rows, trims header names and pads or cuts every
// data row to the header width. Fully blank data rows are dropped.
func buildTable(rows [][]string, offset int) (*Table, error) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[offset]))
	for i, h := range rows[offset] {
		header[i] = strings.TrimSpace(h)
	}
	t := &Table{Header: header}

	for _, raw := range rows[offset+1:] {
		if isBlank(raw) {
			continue
		}
		row := make([]string, len(header))
		copy(row, raw)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
