package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

func writeXLSX(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	first := true
	for _, sh := range []*Sheet{&doc.Results, &doc.Diagnostics} {
		if sh.Name == "" {
			continue
		}
		if first {
			if err := f.SetSheetName(defaultSheet, sh.Name); err != nil {
				return err
			}
			first = false
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return err
		}
		if err := streamSheet(f, sh, bold); err != nil {
			return fmt.Errorf("sheet %s: %w", sh.Name, err)
		}
	}
	return f.Write(w)
}

func streamSheet(f *excelize.File, sh *Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(sh.Name)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(sh.Header))
	for i, h := range sh.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}

	for i, row := range sh.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}
