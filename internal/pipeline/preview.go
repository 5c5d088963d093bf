package pipeline

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/backmassage/campaigndelta/internal/display"
	"github.com/backmassage/campaigndelta/internal/term"
)

// previewLimit caps the rows printed by PrintPreview.
const previewLimit = 50

// PrintPreview prints the key columns of res as an aligned table. Rows whose
// view delta is a statistical outlier among all rows are flagged: [*] beyond
// 1.5 IQR, [!] beyond 3 IQR.
func PrintPreview(w io.Writer, res *Result) {
	if len(res.Rows) == 0 {
		return
	}

	var diffs []float64
	for i := range res.Rows {
		if d := res.Rows[i].ViewsDiff; d.Valid {
			diffs = append(diffs, float64(d.Int64))
		}
	}
	bounds := computeBounds(diffs)

	type cells struct {
		link, viewsNew, viewsDiff, duration, format, cost string
		class                                             string
	}
	headers := cells{link: "Link", viewsNew: "Views New", viewsDiff: "Views Diff", duration: "Duration", format: "Format", cost: "Cost"}

	shown := res.Rows
	if len(shown) > previewLimit {
		shown = shown[:previewLimit]
	}
	lines := make([]cells, 0, len(shown))
	for i := range shown {
		r := &shown[i]
		c := cells{
			link:      r.Link,
			viewsNew:  display.FormatCount(r.ViewsNew),
			viewsDiff: display.FormatDelta(r.ViewsDiff),
			duration:  display.FormatSeconds(r.DurationSeconds),
			format:    string(r.Format),
			cost:      display.FormatMoney(r.Cost),
		}
		if r.ViewsDiff.Valid {
			c.class = bounds.classify(float64(r.ViewsDiff.Int64))
		}
		lines = append(lines, c)
	}

	linkW, newW, diffW, durW, fmtW, costW := width(headers.link), width(headers.viewsNew), width(headers.viewsDiff),
		width(headers.duration), width(headers.format), width(headers.cost)
	for _, c := range lines {
		linkW = max(linkW, width(c.link))
		newW = max(newW, width(c.viewsNew))
		diffW = max(diffW, width(c.viewsDiff))
		durW = max(durW, width(c.duration))
		fmtW = max(fmtW, width(c.format))
		costW = max(costW, width(c.cost))
	}
	if linkW > 50 {
		linkW = 50
	}

	header := fmt.Sprintf("  %-*s  %*s  %*s  %*s  %-*s  %*s",
		linkW, headers.link, newW, headers.viewsNew, diffW, headers.viewsDiff,
		durW, headers.duration, fmtW, headers.format, costW, headers.cost)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", width(header)-2))

	for _, c := range lines {
		l := truncate(c.link, linkW)
		// Pad the plain text first, then wrap in ANSI color. This avoids
		// the alignment bug where %*s counts escape bytes as visible width.
		diffCell := colorPad(fmt.Sprintf("%*s", diffW, c.viewsDiff), c.class)
		fmt.Fprintf(w, "  %-*s  %*s  %s  %*s  %-*s  %*s  %s\n",
			linkW, l, newW, c.viewsNew, diffCell, durW, c.duration, fmtW, c.format, costW, c.cost,
			formatFlag(c.class))
	}
	if rest := len(res.Rows) - len(shown); rest > 0 {
		fmt.Fprintf(w, "  … %s more rows\n", display.FormatCount(int64(rest)))
	}
	fmt.Fprintln(w)
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeBounds(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func formatFlag(class string) string {
	switch class {
	case "extreme":
		return term.Paint(term.Red, "[!]")
	case "outlier":
		return term.Paint(term.Yellow, "[*]")
	}
	return ""
}

func colorPad(padded, class string) string {
	switch class {
	case "extreme":
		return term.Paint(term.Red, padded)
	case "outlier":
		return term.Paint(term.Yellow, padded)
	}
	return padded
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// width is the number of runes in s, which is what fmt pads to.
func width(s string) int { return utf8.RuneCountInString(s) }

// truncate shortens s to at most n runes, ending in an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 0 || width(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
