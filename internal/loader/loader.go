// Package loader turns the old and new sheet tables into link-keyed rows.
//
// It checks that the required columns are present, indexes the old table by
// link, and coerces the count columns to integers. A cell that is not a
// number becomes a null value and is reported as a [CoercionIssue] rather
// than failing the load.
package loader

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"github.com/backmassage/campaigndelta/internal/link"
	"github.com/backmassage/campaigndelta/internal/sheet"
)

// Column names as they appear in the ad platform export.
const (
	ColumnLink       = "Link"
	ColumnEngagement = "Number of Reactions, Comments & Shares"
	ColumnViews      = "Views per Video"
)

// Table labels used in errors and diagnostics.
const (
	TableOld = "old"
	TableNew = "new"
)

// CoercionIssue records a count cell that could not be read as a number.
type CoercionIssue struct {
	Table  string
	Row    int // 1-based data row
	Link   string
	Column string
	Value  string
}

// OldRow is one row of the previous snapshot.
type OldRow struct {
	Link       string
	Engagement sql.NullInt64
	Views      sql.NullInt64
}

// OldTable is the previous snapshot, indexed by link.
type OldTable struct {
	Rows   []OldRow
	Issues []CoercionIssue
	index  map[string]int
}

// Lookup returns the old row for link, if any.
func (t *OldTable) Lookup(l string) (OldRow, bool) {
	i, ok := t.index[link.Normalize(l)]
	if !ok {
		return OldRow{}, false
	}
	return t.Rows[i], true
}

// NewRow is one row of the current snapshot. Cells holds every original
// column except the link, aligned with NewTable.Columns.
type NewRow struct {
	Link       string
	Engagement sql.NullInt64
	Cells      []string
}

// NewTable is the current snapshot; its rows are the output rows, in order.
type NewTable struct {
	Columns []string
	Rows    []NewRow
	Issues  []CoercionIssue
}

// LoadOld validates and indexes the old table.
func LoadOld(t *sheet.Table) (*OldTable, error) {
	cols, err := requireColumns(t, TableOld, ColumnLink, ColumnEngagement, ColumnViews)
	if err != nil {
		return nil, err
	}
	linkCol, engCol, viewsCol := cols[0], cols[1], cols[2]

	out := &OldTable{index: make(map[string]int, len(t.Rows))}
	seen := make(map[string]int, len(t.Rows))
	for i, cells := range t.Rows {
		rowNum := i + 1
		l := link.Normalize(cells[linkCol])
		if l == "" {
			continue
		}
		if first, dup := seen[l]; dup {
			return nil, &DuplicateLinkError{Table: TableOld, Link: l, FirstRow: first, RepeatRow: rowNum}
		}
		seen[l] = rowNum

		row := OldRow{Link: l}
		row.Engagement = out.coerce(rowNum, l, ColumnEngagement, cells[engCol])
		row.Views = out.coerce(rowNum, l, ColumnViews, cells[viewsCol])

		out.index[l] = len(out.Rows)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (t *OldTable) coerce(row int, l, col, v string) sql.NullInt64 {
	n, ok := ParseCount(v)
	if !ok {
		t.Issues = append(t.Issues, CoercionIssue{Table: TableOld, Row: row, Link: l, Column: col, Value: v})
	}
	return n
}

// LoadNew validates the new table and keeps every non-link column for output.
func LoadNew(t *sheet.Table) (*NewTable, error) {
	cols, err := requireColumns(t, TableNew, ColumnLink, ColumnEngagement)
	if err != nil {
		return nil, err
	}
	linkCol, engCol := cols[0], cols[1]

	out := &NewTable{}
	for i, h := range t.Header {
		if i != linkCol {
			out.Columns = append(out.Columns, h)
		}
	}

	seen := make(map[string]int, len(t.Rows))
	for i, cells := range t.Rows {
		rowNum := i + 1
		l := link.Normalize(cells[linkCol])
		if l == "" {
			continue
		}
		if first, dup := seen[l]; dup {
			return nil, &DuplicateLinkError{Table: TableNew, Link: l, FirstRow: first, RepeatRow: rowNum}
		}
		seen[l] = rowNum

		eng, ok := ParseCount(cells[engCol])
		if !ok {
			out.Issues = append(out.Issues, CoercionIssue{Table: TableNew, Row: rowNum, Link: l, Column: ColumnEngagement, Value: cells[engCol]})
		}

		rest := make([]string, 0, len(out.Columns))
		for j, c := range cells {
			if j != linkCol {
				rest = append(rest, c)
			}
		}
		out.Rows = append(out.Rows, NewRow{Link: l, Engagement: eng, Cells: rest})
	}
	return out, nil
}

// requireColumns returns the index of each named column, or a
// MissingColumnError for the first one absent.
func requireColumns(t *sheet.Table, table string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.Column(name)
		if idx[i] < 0 {
			return nil, &MissingColumnError{Table: table, Column: name}
		}
	}
	return idx, nil
}

// ParseCount reads an integer count cell. Thousands separators and
// surrounding spaces are ignored, and integral floats ("100.0") are accepted.
// An empty cell is a valid null. ok is false only for a non-numeric value.
func ParseCount(v string) (n sql.NullInt64, ok bool) {
	s := strings.TrimSpace(v)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return sql.NullInt64{}, true
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: i, Valid: true}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return sql.NullInt64{}, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, so compare against 2^63 directly.
	if f >= 0x1p63 || f < -0x1p63 {
		return sql.NullInt64{}, false
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}, true
}
