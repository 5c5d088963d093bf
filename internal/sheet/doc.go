// Package sheet reads spreadsheet exports into a plain header + rows table.
//
// Two input formats are supported:
//   - .xlsx workbooks (via excelize), one sheet selected by name or the first
//   - .csv files (comma separated, UTF-8, optional BOM)
//
// Both honor a header offset: that many leading rows are skipped and the
// next row is the header. Cells are returned as the formatted strings the
// spreadsheet shows; numeric coercion belongs to the caller.
package sheet
