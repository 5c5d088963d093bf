package loader

import "fmt"

// MissingColumnError reports a required column absent from an input table.
type MissingColumnError struct {
	Table  string // "old" or "new"
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q is missing from the %s file", e.Column, e.Table)
}

// DuplicateLinkError reports a link that appears on more than one row of a
// table, which would make the join ambiguous.
type DuplicateLinkError struct {
	Table     string
	Link      string
	FirstRow  int
	RepeatRow int
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("link %q appears twice in the %s file (rows %d and %d)", e.Link, e.Table, e.FirstRow, e.RepeatRow)
}
