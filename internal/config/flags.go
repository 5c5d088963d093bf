package config

// This file binds CLI flags to a Config. Flags are grouped into inputs,
// enrichment, rules, pricing, and display. Rules and pricing flags are
// captured separately and applied after Parse, so values from the rules file
// hold unless the user passes the flag.

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// APIKeyEnv is consulted when --api-key is not given.
const APIKeyEnv = "YOUTUBE_API_KEY"

// Overrides holds flag values that are applied after Parse, on top of the
// rules file. Only flags the user actually set are applied.
type Overrides struct {
	fs *pflag.FlagSet

	bumperDuration float64
	reachDuration  float64
	reachViews     float64

	// The six values of the original upload form.
	facebookBenchmark       float64
	bumperBenchmark         float64
	skippableReachBenchmark float64
	facebookCost            float64
	bumperCost              float64
	skippableViewCost       float64

	noColor    bool
	forceColor bool
}

// BindPersistentFlags registers the flags shared by every subcommand.
func BindPersistentFlags(fs *pflag.FlagSet, cfg *Config) *Overrides {
	o := &Overrides{fs: fs}
	defineRulesFlags(fs, cfg, o)
	definePricingFlags(fs, o)
	defineEnrichmentFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, o)
	return o
}

// BindRunFlags registers the flags of the run subcommand.
func BindRunFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file (.xlsx, .csv or .sqlite)")
	fs.Var(&outputFormatValue{&cfg.OutputFormat}, "format", "Output format: xlsx | csv | sqlite (default: from extension)")
}

// BindServeFlags registers the flags of the serve subcommand.
func BindServeFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
}

// defineRulesFlags registers the rules file, thresholds, formula and input layout.
func defineRulesFlags(fs *pflag.FlagSet, cfg *Config, o *Overrides) {
	fs.StringVarP(&cfg.RulesFile, "rules", "r", "", "YAML rules file (thresholds, benchmarks, costs, cost_formula)")
	fs.Float64Var(&o.bumperDuration, "bumper-duration", 0, "Duration (s) below which a video is a bumper")
	fs.Float64Var(&o.reachDuration, "reach-duration", 0, "Duration (s) below which a video may be skippable reach")
	fs.Float64Var(&o.reachViews, "reach-views", 0, "View delta below which a video may be skippable reach")
	fs.StringVar(&cfg.CostFormula, "cost-formula", "", "Cost expression, e.g. 'cost * views_diff / benchmark'")
	fs.StringVar(&cfg.Sheet, "sheet", "", "Sheet name in the input workbooks (default: first sheet)")
	fs.IntVar(&cfg.HeaderOffset, "header-offset", cfg.HeaderOffset, "Leading non-data rows to skip")
}

// definePricingFlags registers the six benchmark/cost values of the original form.
func definePricingFlags(fs *pflag.FlagSet, o *Overrides) {
	fs.Float64Var(&o.facebookBenchmark, "facebook-benchmark", 0, "Facebook benchmark")
	fs.Float64Var(&o.bumperBenchmark, "bumper-benchmark", 0, "YouTube bumper benchmark")
	fs.Float64Var(&o.skippableReachBenchmark, "skippable-reach-benchmark", 0, "YouTube skippable reach benchmark")
	fs.Float64Var(&o.facebookCost, "facebook-cost", 0, "Facebook cost")
	fs.Float64Var(&o.bumperCost, "bumper-cost", 0, "YouTube bumper cost")
	fs.Float64Var(&o.skippableViewCost, "skippable-view-cost", 0, "YouTube skippable view cost")
}

// defineEnrichmentFlags registers API credential, endpoint, marker and timeout.
func defineEnrichmentFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.APIKey, "api-key", "k", "", "YouTube Data API key (default: $"+APIKeyEnv+")")
	fs.StringVar(&cfg.APIEndpoint, "api-endpoint", "", "Override the YouTube API base URL")
	fs.StringVar(&cfg.LinkMarker, "link-marker", cfg.LinkMarker, "Token preceding the video id in each link")
	fs.DurationVar(&cfg.LookupTimeout, "lookup-timeout", cfg.LookupTimeout, "Timeout for each video lookup")
}

// defineDisplayFlags registers --color, --no-color, --verbose, --log.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config, o *Overrides) {
	fs.BoolVar(&o.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	fs.StringVarP(&cfg.LogFile, "log", "l", "", "Append logs to file")
}

// Apply loads the rules file (if any), then copies every flag the user set
// on top of it, then falls back to the environment for the API key. Flags
// always win over the file.
func (o *Overrides) Apply(cfg *Config) error {
	if cfg.RulesFile != "" {
		formula, sheet := cfg.CostFormula, cfg.Sheet
		headerOffset, marker, timeout := cfg.HeaderOffset, cfg.LinkMarker, cfg.LookupTimeout
		if err := LoadRulesFile(cfg, cfg.RulesFile); err != nil {
			return err
		}
		// Re-apply plain flags the file may have overwritten.
		if o.changed("cost-formula") {
			cfg.CostFormula = formula
		}
		if o.changed("sheet") {
			cfg.Sheet = sheet
		}
		if o.changed("header-offset") {
			cfg.HeaderOffset = headerOffset
		}
		if o.changed("link-marker") {
			cfg.LinkMarker = marker
		}
		if o.changed("lookup-timeout") {
			cfg.LookupTimeout = timeout
		}
	}

	if o.changed("bumper-duration") {
		cfg.Thresholds.BumperDuration = o.bumperDuration
	}
	if o.changed("reach-duration") {
		cfg.Thresholds.ReachDuration = o.reachDuration
	}
	if o.changed("reach-views") {
		cfg.Thresholds.ReachViews = o.reachViews
	}

	o.setPrice(cfg.Pricing.Benchmarks, "facebook-benchmark", CategoryFacebook, o.facebookBenchmark)
	o.setPrice(cfg.Pricing.Benchmarks, "bumper-benchmark", CategoryYouTubeBumper, o.bumperBenchmark)
	o.setPrice(cfg.Pricing.Benchmarks, "skippable-reach-benchmark", CategoryYouTubeSkippableReach, o.skippableReachBenchmark)
	o.setPrice(cfg.Pricing.Costs, "facebook-cost", CategoryFacebook, o.facebookCost)
	o.setPrice(cfg.Pricing.Costs, "bumper-cost", CategoryYouTubeBumper, o.bumperCost)
	o.setPrice(cfg.Pricing.Costs, "skippable-view-cost", CategoryYouTubeSkippableView, o.skippableViewCost)

	if o.noColor {
		cfg.ColorMode = ColorNever
	} else if o.forceColor {
		cfg.ColorMode = ColorAlways
	}

	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}
	return nil
}

func (o *Overrides) changed(name string) bool {
	if o.fs == nil {
		return false
	}
	f := o.fs.Lookup(name)
	return f != nil && f.Changed
}

func (o *Overrides) setPrice(dst map[Category]float64, flag string, cat Category, v float64) {
	if o.changed(flag) {
		dst[cat] = v
	}
}

// pflag.Value adapter so OutputFormat can be validated at parse time.

type outputFormatValue struct{ p *OutputFormat }

func (f *outputFormatValue) String() string { return string(*f.p) }
func (f *outputFormatValue) Type() string   { return "format" }
func (f *outputFormatValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "xlsx":
		*f.p = FormatXLSX
	case "csv":
		*f.p = FormatCSV
	case "sqlite", "db":
		*f.p = FormatSQLite
	default:
		return fmt.Errorf("invalid format %q (use 'xlsx', 'csv' or 'sqlite')", s)
	}
	return nil
}
