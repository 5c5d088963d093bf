package pipeline

import (
	"time"

	"github.com/backmassage/campaigndelta/internal/classify"
)

// RunStats tracks aggregate counters for one run.
type RunStats struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Rows        int
	Matched     int
	Formats     map[classify.Format]int
	Diagnostics map[Kind]int
	TotalCost   float64
}

// Summarize counts rows, matches, formats, diagnostics and cost in res.
func Summarize(res *Result) RunStats {
	s := RunStats{
		Formats:     make(map[classify.Format]int, len(classify.Formats)),
		Diagnostics: make(map[Kind]int, len(Kinds)),
	}
	for i := range res.Rows {
		r := &res.Rows[i]
		s.Rows++
		if r.Matched {
			s.Matched++
		}
		s.Formats[r.Format]++
		s.TotalCost += r.Cost
	}
	for _, d := range res.Diagnostics {
		s.Diagnostics[d.Kind]++
	}
	return s
}

// Unmatched returns the number of rows with no old-table counterpart.
func (s *RunStats) Unmatched() int { return s.Rows - s.Matched }

// LookupMisses returns the number of rows that kept default metadata.
func (s *RunStats) LookupMisses() int { return s.Diagnostics[KindLookupMiss] }

// DiagnosticCount returns the total number of diagnostics.
func (s *RunStats) DiagnosticCount() int {
	n := 0
	for _, c := range s.Diagnostics {
		n += c
	}
	return n
}

// Elapsed returns the wall time of the run.
func (s *RunStats) Elapsed() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }
