// Package check provides preflight diagnostics (the check subcommand) and
// pre-run validation (CheckDeps) for the API key, the rules, the input
// files and the YouTube API.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/backmassage/campaigndelta/internal/classify"
	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/display"
	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/link"
	"github.com/backmassage/campaigndelta/internal/loader"
	"github.com/backmassage/campaigndelta/internal/sheet"
	"github.com/backmassage/campaigndelta/internal/youtube"
)

// Sentinel errors returned by CheckDeps.
var (
	ErrNoAPIKey        = errors.New("YouTube API key is not set")
	ErrRulesIncomplete = errors.New("classification rules are incomplete")
	ErrBadCostFormula  = errors.New("cost formula does not compile")
	ErrInputUnreadable = errors.New("input file is not readable")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// RunCheck runs the interactive check flow: API key, rules, cost formula,
// input files, and one live lookup. It is informational only and does not
// stop on failure. l may be nil when no client could be built. It returns
// the number of failed checks.
func RunCheck(ctx context.Context, cfg *config.Config, l enrich.Lookuper, log Logger) int {
	log.Info("=== Preflight Check ===")

	failed := 0
	fail := func(format string, args ...interface{}) {
		failed++
		log.Error(format, args...)
	}

	if cfg.APIKey == "" {
		fail("API key: not set (--api-key or $%s)", config.APIKeyEnv)
	} else {
		log.Success("API key: set (%d chars)", len(cfg.APIKey))
	}

	if err := cfg.ValidateRules(); err != nil {
		fail("Rules: %v", err)
	} else {
		th := cfg.Thresholds
		log.Success("Rules: bumper < %gs, reach < %gs and < %g views", th.BumperDuration, th.ReachDuration, th.ReachViews)
	}

	if cfg.CostFormula != "" {
		if _, err := classify.CompileCostModel(cfg.CostFormula); err != nil {
			fail("Cost formula: %v", err)
		} else {
			log.Success("Cost formula: %s", cfg.CostFormula)
		}
	}
	checkPricing(cfg, log)

	sampleID := ""
	if cfg.OldFile != "" {
		if _, err := checkInput(cfg, cfg.OldFile, loader.TableOld, log); err != nil {
			fail("Old file: %v", err)
		}
	}
	if cfg.NewFile != "" {
		ids, err := checkInput(cfg, cfg.NewFile, loader.TableNew, log)
		if err != nil {
			fail("New file: %v", err)
		} else if len(ids) > 0 {
			sampleID = ids[0]
		}
	}

	switch {
	case l == nil:
		log.Warn("YouTube API: skipped (no client)")
	case sampleID == "":
		log.Warn("YouTube API: skipped (no video id to look up; pass the new file)")
	default:
		log.Info("Testing YouTube API with video %s...", sampleID)
		md, err := l.Lookup(ctx, sampleID)
		if err != nil {
			fail("YouTube API: %v", err)
		} else {
			log.Success("YouTube API works (%s views, duration %s)",
				display.FormatCount(md.Views), display.FormatSeconds(youtube.ToSeconds(md.Duration)))
		}
	}

	if failed == 0 {
		log.Success("All checks passed")
	}
	return failed
}

// checkPricing reports which categories have a benchmark and a cost.
func checkPricing(cfg *config.Config, log Logger) {
	log.Info("Pricing:")
	for _, cat := range config.Categories {
		_, hasB := cfg.Pricing.Benchmarks[cat]
		_, hasC := cfg.Pricing.Costs[cat]
		switch {
		case hasB && hasC:
			log.Info("  %s: benchmark and cost", cat)
		case hasC:
			log.Info("  %s: cost only", cat)
		case hasB:
			log.Warn("  %s: benchmark only (rows of this category cost 0)", cat)
		default:
			log.Warn("  %s: not priced (rows of this category cost 0)", cat)
		}
	}
}

// checkInput reads one input file, validates its columns and returns its
// video ids.
func checkInput(cfg *config.Config, path, table string, log Logger) ([]string, error) {
	tbl, err := sheet.ReadFile(path, sheet.Options{Sheet: cfg.Sheet, HeaderOffset: cfg.HeaderOffset})
	if err != nil {
		return nil, err
	}
	if table == loader.TableOld {
		t, err := loader.LoadOld(tbl)
		if err != nil {
			return nil, err
		}
		log.Success("Old file: %d rows", len(t.Rows))
		return nil, nil
	}
	t, err := loader.LoadNew(tbl)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range t.Rows {
		if id := link.VideoID(r.Link, cfg.LinkMarker); id != "" {
			ids = append(ids, id)
		}
	}
	log.Success("New file: %d rows, %d video ids", len(t.Rows), len(ids))
	return ids, nil
}

// CheckDeps is the pre-run validation: the API key must be set, the rules
// complete, the formula valid and both inputs readable. Returns an error
// wrapping one of the sentinels on failure.
func CheckDeps(cfg *config.Config) error {
	if cfg.APIKey == "" {
		return ErrNoAPIKey
	}
	if err := cfg.ValidateRules(); err != nil {
		return fmt.Errorf("%w: %v", ErrRulesIncomplete, err)
	}
	if _, err := classify.CompileCostModel(cfg.CostFormula); err != nil {
		return fmt.Errorf("%w: %v", ErrBadCostFormula, err)
	}
	for _, path := range []string{cfg.OldFile, cfg.NewFile} {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInputUnreadable, err)
		}
		f.Close()
	}
	return nil
}
