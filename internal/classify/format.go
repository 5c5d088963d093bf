package classify

import (
	"database/sql"

	"github.com/backmassage/campaigndelta/internal/config"
)

// Format is the ad format label written to the ad.format column.
type Format string

const (
	FormatBumper         Format = "bumper"
	FormatSkippableReach Format = "skippable_reach"
	FormatSkippableView  Format = "skippable_view"
)

// Formats lists every label Classify can return, in chain order.
var Formats = []Format{FormatBumper, FormatSkippableReach, FormatSkippableView}

// Category returns the pricing category the format is billed under.
func (f Format) Category() config.Category {
	switch f {
	case FormatBumper:
		return config.CategoryYouTubeBumper
	case FormatSkippableReach:
		return config.CategoryYouTubeSkippableReach
	default:
		return config.CategoryYouTubeSkippableView
	}
}

// Classify picks the format for one row. Both bounds are exclusive, so a
// duration equal to a threshold falls through to the next branch. A null
// viewsDiff (no old row to diff against) never qualifies for reach.
func Classify(durationSeconds float64, viewsDiff sql.NullInt64, th config.Thresholds) Format {
	if durationSeconds < th.BumperDuration {
		return FormatBumper
	}
	if durationSeconds < th.ReachDuration && viewsDiff.Valid && float64(viewsDiff.Int64) < th.ReachViews {
		return FormatSkippableReach
	}
	return FormatSkippableView
}
