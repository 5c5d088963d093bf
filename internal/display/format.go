package display

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatCount returns a count with thousands separators (e.g. "1,234,567").
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatDelta prefixes a count with + or - for delta display (e.g. "+ 1,200").
// A null delta (no earlier snapshot) renders as "n/a".
func FormatDelta(d sql.NullInt64) string {
	if !d.Valid {
		return "n/a"
	}
	switch {
	case d.Int64 > 0:
		return "+ " + humanize.Comma(d.Int64)
	case d.Int64 < 0:
		return "- " + humanize.Comma(-d.Int64)
	}
	return "0"
}

// FormatMoney renders an amount with two decimals and separators (e.g. "12,345.60").
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	s := humanize.CommafWithDigits(math.Round(v*100)/100, 2)
	return padCents(s)
}

// FormatSeconds renders a duration in seconds as "m:ss" (e.g. 153 -> "2:33").
func FormatSeconds(sec float64) string {
	if sec <= 0 || math.IsNaN(sec) {
		return "0:00"
	}
	total := int64(math.Round(sec))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// padCents makes sure CommafWithDigits output always carries two decimals;
// humanize trims trailing zeros ("12.5" -> "12.50", "3" -> "3.00").
func padCents(s string) string {
	dot := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			dot = i
			break
		}
	}
	switch {
	case dot < 0:
		return s + ".00"
	case len(s)-dot == 2:
		return s + "0"
	}
	return s
}
