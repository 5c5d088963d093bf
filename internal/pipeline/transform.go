package pipeline

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/backmassage/campaigndelta/internal/classify"
	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/link"
	"github.com/backmassage/campaigndelta/internal/loader"
	"github.com/backmassage/campaigndelta/internal/youtube"
)

// Derived column names, in output order after the original new columns.
const (
	ColReactionsDiff   = "Reactions_Diff"
	ColViewsOld        = "Views_Old"
	ColViewsNew        = "Views_New"
	ColDuration        = "Duration"
	ColViewsDiff       = "Views_Diff"
	ColDurationSeconds = "duration_seconds"
	ColFormat          = "ad.format"
	ColCost            = "Cost"
)

var derivedColumns = []string{
	ColReactionsDiff,
	ColViewsOld,
	ColViewsNew,
	ColDuration,
	ColViewsDiff,
	ColDurationSeconds,
	ColFormat,
	ColCost,
}

// OutputColumns returns the full output header: Link, the new table's own
// columns, then the derived columns. A new-table column named like Link or a
// derived column (case-insensitively) is replaced by it, not repeated.
func OutputColumns(newColumns []string) []string {
	keep := passThrough(newColumns)
	cols := make([]string, 0, 1+len(keep)+len(derivedColumns))
	cols = append(cols, loader.ColumnLink)
	for _, i := range keep {
		cols = append(cols, newColumns[i])
	}
	return append(cols, derivedColumns...)
}

// passThrough returns the indexes of the new-table columns carried to the
// output unchanged.
func passThrough(columns []string) []int {
	keep := make([]int, 0, len(columns))
	for i, c := range columns {
		if !replaced(c) {
			keep = append(keep, i)
		}
	}
	return keep
}

func replaced(column string) bool {
	if strings.EqualFold(column, loader.ColumnLink) {
		return true
	}
	for _, d := range derivedColumns {
		if strings.EqualFold(column, d) {
			return true
		}
	}
	return false
}

func pick(cells []string, keep []int) []string {
	out := make([]string, 0, len(keep))
	for _, i := range keep {
		if i < len(cells) {
			out = append(out, cells[i])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Input is everything Transform reads. None of it is modified.
type Input struct {
	Old        *loader.OldTable
	New        *loader.NewTable
	Enriched   *enrich.Result
	LinkMarker string
	Thresholds config.Thresholds
	Pricing    config.Pricing
	Cost       *classify.CostModel
}

// Row is one output row. Null values render as blank cells.
type Row struct {
	Link            string
	Cells           []string // new-table cells carried through, see OutputColumns
	Matched         bool     // link found in the old table
	ReactionsDiff   sql.NullInt64
	ViewsOld        sql.NullInt64
	ViewsNew        int64
	Duration        string
	ViewsDiff       sql.NullInt64
	DurationSeconds float64
	Format          classify.Format
	Cost            float64
}

// Values returns the row aligned with Result.Columns. Original cells that
// are canonical numbers become numbers; nulls become nil.
func (r *Row) Values() []any {
	out := make([]any, 0, 1+len(r.Cells)+len(derivedColumns))
	out = append(out, r.Link)
	for _, c := range r.Cells {
		out = append(out, cellValue(c))
	}
	return append(out,
		nullValue(r.ReactionsDiff),
		nullValue(r.ViewsOld),
		r.ViewsNew,
		r.Duration,
		nullValue(r.ViewsDiff),
		r.DurationSeconds,
		string(r.Format),
		r.Cost,
	)
}

// Result is the augmented table plus everything that degraded on the way.
type Result struct {
	Columns     []string
	Rows        []Row
	Diagnostics []Diagnostic
}

// Transform builds the output table. It performs no I/O: lookups must
// already be in in.Enriched, which may be nil when nothing was fetched.
func Transform(in Input) *Result {
	enriched := in.Enriched
	if enriched == nil {
		enriched = &enrich.Result{}
	}
	res := &Result{Columns: OutputColumns(in.New.Columns)}
	keep := passThrough(in.New.Columns)

	for _, is := range in.Old.Issues {
		res.add(KindNumericCoercion, 0, is.Link, coercionDetail(is))
	}
	newIssues := make(map[string][]loader.CoercionIssue, len(in.New.Issues))
	for _, is := range in.New.Issues {
		newIssues[is.Link] = append(newIssues[is.Link], is)
	}

	for i, nr := range in.New.Rows {
		rowNum := i + 1
		row := Row{Link: nr.Link, Cells: pick(nr.Cells, keep)}

		for _, is := range newIssues[nr.Link] {
			res.add(KindNumericCoercion, rowNum, nr.Link, coercionDetail(is))
		}

		if old, ok := in.Old.Lookup(nr.Link); ok {
			row.Matched = true
			row.ViewsOld = old.Views
			row.ReactionsDiff = subtract(nr.Engagement, old.Engagement)
		} else {
			res.add(KindUnmatchedLink, rowNum, nr.Link, "link not found in the old file")
		}

		id := link.VideoID(nr.Link, in.LinkMarker)
		if md, ok := enriched.Metadata[id]; ok {
			row.ViewsNew = md.Views
			row.Duration = md.Duration
		} else {
			detail := fmt.Sprintf("no metadata for video %q", id)
			if err := enriched.Misses[id]; err != nil {
				detail = err.Error()
			}
			res.add(KindLookupMiss, rowNum, nr.Link, detail)
		}

		row.ViewsDiff = subtract(sql.NullInt64{Int64: row.ViewsNew, Valid: true}, row.ViewsOld)

		if row.Duration != "" {
			secs, err := youtube.DurationSeconds(row.Duration)
			if err != nil {
				res.add(KindDurationParse, rowNum, nr.Link, err.Error())
			}
			row.DurationSeconds = secs
		}

		row.Format = classify.Classify(row.DurationSeconds, row.ViewsDiff, in.Thresholds)

		cost, notes := in.Cost.Price(classify.CostInput{
			Format:          row.Format,
			ViewsNew:        row.ViewsNew,
			ViewsOld:        row.ViewsOld,
			ViewsDiff:       row.ViewsDiff,
			ReactionsDiff:   row.ReactionsDiff,
			Engagement:      nr.Engagement,
			DurationSeconds: row.DurationSeconds,
			Matched:         row.Matched,
		}, in.Pricing)
		row.Cost = cost
		for _, n := range notes {
			res.add(KindUnclassifiedCost, rowNum, nr.Link, n)
		}

		res.Rows = append(res.Rows, row)
	}
	return res
}

func (r *Result) add(kind Kind, row int, l, detail string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Kind: kind, Row: row, Link: l, Detail: detail})
}

func coercionDetail(is loader.CoercionIssue) string {
	return fmt.Sprintf("%s file row %d: %s %q is not a number", is.Table, is.Row, is.Column, is.Value)
}

// subtract returns a - b, null when either side is null.
func subtract(a, b sql.NullInt64) sql.NullInt64 {
	if !a.Valid || !b.Valid {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: a.Int64 - b.Int64, Valid: true}
}

func nullValue(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}

// cellValue keeps plain numbers numeric in the output workbook. Only text
// that formats back to itself is converted, so ids like "000123" and
// integers beyond int64 stay text.
func cellValue(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return s
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		if strconv.FormatInt(i, 10) == t {
			return i
		}
		return s
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	if strconv.FormatFloat(f, 'f', -1, 64) == t {
		return f
	}
	return s
}
