package export

import (
	"encoding/csv"
	"io"
	"strconv"
)

func writeCSV(w io.Writer, sh *Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sh.Header); err != nil {
		return err
	}
	rec := make([]string, len(sh.Header))
	for _, row := range sh.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
