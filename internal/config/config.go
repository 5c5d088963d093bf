// Package config holds runtime configuration: defaults, the YAML rules file,
// CLI flag binding, and validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// OutputFormat is the file format of the downloadable result.
type OutputFormat string

const (
	FormatAuto   OutputFormat = ""       // Derived from the output file extension.
	FormatXLSX   OutputFormat = "xlsx"   // Excel workbook (default).
	FormatCSV    OutputFormat = "csv"    // Main table only.
	FormatSQLite OutputFormat = "sqlite" // results, diagnostics and runs tables.
)

// Category is a pricing category. The classifier only ever produces the three
// YouTube categories; Facebook is carried for the benchmark/cost tables.
type Category string

const (
	CategoryFacebook              Category = "FACEBOOK"
	CategoryYouTubeBumper         Category = "YOUTUBE_BUMPER"
	CategoryYouTubeSkippableReach Category = "YOUTUBE_SKIPPABLE_REACH"
	CategoryYouTubeSkippableView  Category = "YOUTUBE_SKIPPABLE_VIEW"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryFacebook,
	CategoryYouTubeBumper,
	CategoryYouTubeSkippableReach,
	CategoryYouTubeSkippableView,
}

// ParseCategory accepts "youtube_bumper", "YOUTUBE_BUMPER", "youtube-bumper".
func ParseCategory(s string) (Category, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, c := range Categories {
		if string(c) == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown pricing category %q", s)
}

// Thresholds drive format classification. They have no defaults: an unset
// threshold is NaN and fails validation.
type Thresholds struct {
	BumperDuration float64 // seconds; below this a video is a bumper.
	ReachDuration  float64 // seconds; upper bound for skippable reach.
	ReachViews     float64 // view delta; upper bound for skippable reach.
}

// Pricing holds the per-category benchmark and cost tables supplied by the
// user. A category absent from a map has no entry (not zero).
type Pricing struct {
	Benchmarks map[Category]float64
	Costs      map[Category]float64
}

// Clone returns a deep copy so callers can override entries per request.
func (p Pricing) Clone() Pricing {
	out := Pricing{
		Benchmarks: make(map[Category]float64, len(p.Benchmarks)),
		Costs:      make(map[Category]float64, len(p.Costs)),
	}
	for k, v := range p.Benchmarks {
		out.Benchmarks[k] = v
	}
	for k, v := range p.Costs {
		out.Costs[k] = v
	}
	return out
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by [LoadRulesFile] and the bound CLI flags, before being passed (by
// pointer) to the packages that need it.
type Config struct {
	// Inputs and output.
	OldFile      string
	NewFile      string
	OutputFile   string       // Default: "Output.xlsx".
	OutputFormat OutputFormat // Default: derived from OutputFile.
	Sheet        string       // Sheet name; empty selects the first sheet.
	HeaderOffset int          // Default: 4 leading non-data rows.

	// Enrichment.
	APIKey        string        // --api-key or $YOUTUBE_API_KEY.
	APIEndpoint   string        // Override for the YouTube API base URL.
	LinkMarker    string        // Default: "watch?v=".
	LookupTimeout time.Duration // Default: 10s per lookup.

	// Classification and cost.
	RulesFile   string
	Thresholds  Thresholds
	Pricing     Pricing
	CostFormula string

	// Serve mode.
	ListenAddr string // Default: "127.0.0.1:8501".

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
}

// DefaultConfig returns a Config with every default applied. Thresholds are
// NaN: they must come from the rules file or flags.
func DefaultConfig() Config {
	return Config{
		OutputFile:    "Output.xlsx",
		HeaderOffset:  4,
		LinkMarker:    "watch?v=",
		LookupTimeout: 10 * time.Second,
		Thresholds: Thresholds{
			BumperDuration: math.NaN(),
			ReachDuration:  math.NaN(),
			ReachViews:     math.NaN(),
		},
		Pricing: Pricing{
			Benchmarks: map[Category]float64{},
			Costs:      map[Category]float64{},
		},
		ListenAddr: "127.0.0.1:8501",
		ColorMode:  ColorAuto,
	}
}

// Validate checks the enum fields and numeric ranges shared by every
// subcommand, and resolves OutputFormat from the output file extension.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.HeaderOffset < 0 {
		return fmt.Errorf("header offset must not be negative (got %d)", c.HeaderOffset)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive (got %s)", c.LookupTimeout)
	}
	if strings.TrimSpace(c.LinkMarker) == "" {
		return errors.New("link marker must not be empty")
	}

	format, err := ResolveOutputFormat(c.OutputFormat, c.OutputFile)
	if err != nil {
		return err
	}
	c.OutputFormat = format
	return nil
}

// ValidateRules requires the classification thresholds and the cost formula.
func (c *Config) ValidateRules() error {
	var missing []string
	if math.IsNaN(c.Thresholds.BumperDuration) {
		missing = append(missing, "bumper_duration")
	}
	if math.IsNaN(c.Thresholds.ReachDuration) {
		missing = append(missing, "reach_duration")
	}
	if math.IsNaN(c.Thresholds.ReachViews) {
		missing = append(missing, "reach_views")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing thresholds: %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(c.CostFormula) == "" {
		return errors.New("cost_formula is required")
	}
	return nil
}

// ValidateRun checks everything a batch run needs: both input files, the
// API key, and the rules.
func (c *Config) ValidateRun() error {
	if c.OldFile == "" || c.NewFile == "" {
		return errors.New("need exactly old_file and new_file")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("YouTube API key is required (--api-key or $YOUTUBE_API_KEY)")
	}
	return c.ValidateRules()
}

// ResolveOutputFormat returns the explicit format when set, otherwise the
// format implied by the file extension.
func ResolveOutputFormat(explicit OutputFormat, path string) (OutputFormat, error) {
	if explicit != FormatAuto {
		switch explicit {
		case FormatXLSX, FormatCSV, FormatSQLite:
			return explicit, nil
		}
		return "", fmt.Errorf("invalid output format %q (use 'xlsx', 'csv' or 'sqlite')", explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", "":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".sqlite", ".db", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("cannot infer output format from %q (use --format)", path)
}
