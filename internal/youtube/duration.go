package youtube

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sosodev/duration"
)

// ErrEmptyDuration is returned by DurationSeconds for a blank input.
var ErrEmptyDuration = errors.New("empty duration")

// DurationSeconds converts an ISO-8601 duration ("PT2M33S") to seconds.
// A plain number is taken as seconds already, so the conversion is
// idempotent on its own output.
func DurationSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyDuration
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return f, nil
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d.ToTimeDuration().Seconds(), nil
}

// ToSeconds is DurationSeconds with every failure mapped to 0.
func ToSeconds(s string) float64 {
	secs, err := DurationSeconds(s)
	if err != nil {
		return 0
	}
	return secs
}
