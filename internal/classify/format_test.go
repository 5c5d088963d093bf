package classify

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/campaigndelta/internal/config"
)

var testThresholds = config.Thresholds{BumperDuration: 7, ReachDuration: 61, ReachViews: 1000}

func diff(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		views    sql.NullInt64
		want     Format
	}{
		{"short is bumper", 6, diff(50), FormatBumper},
		{"bumper ignores views", 0, diff(1_000_000), FormatBumper},
		{"bumper boundary is exclusive", 7, diff(50), FormatSkippableReach},
		{"reach", 30, diff(999), FormatSkippableReach},
		{"negative diff is reach", 30, diff(-20), FormatSkippableReach},
		{"reach views boundary is exclusive", 30, diff(1000), FormatSkippableView},
		{"reach duration boundary is exclusive", 61, diff(10), FormatSkippableView},
		{"long is view", 300, diff(10), FormatSkippableView},
		{"null diff never reach", 30, sql.NullInt64{}, FormatSkippableView},
		{"null diff can still be bumper", 5, sql.NullInt64{}, FormatBumper},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.duration, tt.views, testThresholds))
		})
	}
}

func TestClassify_Total(t *testing.T) {
	valid := map[Format]bool{}
	for _, f := range Formats {
		valid[f] = true
	}
	for d := 0.0; d <= 120; d += 0.5 {
		for v := int64(-2000); v <= 2000; v += 250 {
			got := Classify(d, diff(v), testThresholds)
			assert.True(t, valid[got], "Classify(%v, %d) = %q", d, v, got)
		}
	}
}

func TestFormatCategory(t *testing.T) {
	assert.Equal(t, config.CategoryYouTubeBumper, FormatBumper.Category())
	assert.Equal(t, config.CategoryYouTubeSkippableReach, FormatSkippableReach.Category())
	assert.Equal(t, config.CategoryYouTubeSkippableView, FormatSkippableView.Category())
}
