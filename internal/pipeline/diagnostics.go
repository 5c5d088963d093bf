package pipeline

import "fmt"

// Kind names a non-fatal condition recorded while building the output.
type Kind string

const (
	KindLookupMiss       Kind = "lookup_miss"
	KindDurationParse    Kind = "duration_parse"
	KindNumericCoercion  Kind = "numeric_coercion"
	KindUnclassifiedCost Kind = "unclassified_cost"
	KindUnmatchedLink    Kind = "unmatched_link"
)

// Kinds lists every diagnostic kind in report order.
var Kinds = []Kind{
	KindLookupMiss,
	KindDurationParse,
	KindNumericCoercion,
	KindUnclassifiedCost,
	KindUnmatchedLink,
}

// Diagnostic describes one degraded value. Row is the 1-based output row,
// or 0 when the condition belongs to a row that is not in the output.
type Diagnostic struct {
	Kind   Kind
	Row    int
	Link   string
	Detail string
}

func (d Diagnostic) String() string {
	if d.Row > 0 {
		return fmt.Sprintf("%s: row %d (%s): %s", d.Kind, d.Row, d.Link, d.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Link, d.Detail)
}

// DiagnosticColumns is the header of the Diagnostics sheet.
var DiagnosticColumns = []string{"Kind", "Row", "Link", "Detail"}

// Values returns the diagnostic as a Diagnostics sheet row.
func (d Diagnostic) Values() []any {
	var row any
	if d.Row > 0 {
		row = int64(d.Row)
	}
	return []any{string(d.Kind), row, d.Link, d.Detail}
}
