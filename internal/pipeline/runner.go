package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/campaigndelta/internal/classify"
	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/display"
	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/export"
	"github.com/backmassage/campaigndelta/internal/loader"
	"github.com/backmassage/campaigndelta/internal/logging"
	"github.com/backmassage/campaigndelta/internal/sheet"
	"github.com/backmassage/campaigndelta/internal/term"
	"github.com/backmassage/campaigndelta/internal/youtube"
)

// Sheet names of the output workbook.
const (
	ResultsSheet     = "Results"
	DiagnosticsSheet = "Diagnostics"
)

// Job is one comparison over in-memory tables.
type Job struct {
	Old, New   *sheet.Table
	LinkMarker string
	Thresholds config.Thresholds
	Pricing    config.Pricing
	Cost       *classify.CostModel
}

// Process loads both tables, looks up every distinct video id through l and
// transforms the rows. Column and duplicate-link errors are returned before
// any lookup is made.
func Process(ctx context.Context, job Job, l enrich.Lookuper, log *logging.Logger) (*Result, error) {
	oldT, newT, err := load(job)
	if err != nil {
		return nil, err
	}
	enriched, err := enrich.Enrich(ctx, l, VideoIDs(newT, job.LinkMarker), log)
	if err != nil {
		return nil, err
	}
	return Transform(Input{
		Old:        oldT,
		New:        newT,
		Enriched:   enriched,
		LinkMarker: job.LinkMarker,
		Thresholds: job.Thresholds,
		Pricing:    job.Pricing,
		Cost:       job.Cost,
	}), nil
}

func load(job Job) (*loader.OldTable, *loader.NewTable, error) {
	oldT, err := loader.LoadOld(job.Old)
	if err != nil {
		return nil, nil, err
	}
	newT, err := loader.LoadNew(job.New)
	if err != nil {
		return nil, nil, err
	}
	return oldT, newT, nil
}

// NewLookuper builds the YouTube client described by cfg.
func NewLookuper(ctx context.Context, cfg *config.Config) (*youtube.Client, error) {
	opts := []youtube.Option{youtube.WithTimeout(cfg.LookupTimeout)}
	if cfg.APIEndpoint != "" {
		opts = append(opts, youtube.WithEndpoint(cfg.APIEndpoint))
	}
	return youtube.NewClient(ctx, cfg.APIKey, opts...)
}

// Run is the batch entry point: read both files, enrich, transform, write
// the output file and log a summary. Nothing is written when ctx is
// canceled or a fatal error occurs.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger) (RunStats, error) {
	client, err := NewLookuper(ctx, cfg)
	if err != nil {
		return RunStats{}, err
	}
	return RunWith(ctx, cfg, client, log)
}

// RunWith is Run with an explicit lookuper.
func RunWith(ctx context.Context, cfg *config.Config, l enrich.Lookuper, log *logging.Logger) (RunStats, error) {
	started := time.Now()
	runID := uuid.NewString()

	model, err := classify.CompileCostModel(cfg.CostFormula)
	if err != nil {
		return RunStats{}, err
	}

	opts := sheet.Options{Sheet: cfg.Sheet, HeaderOffset: cfg.HeaderOffset}
	oldTbl, err := sheet.ReadFile(cfg.OldFile, opts)
	if err != nil {
		return RunStats{}, fmt.Errorf("read old file: %w", err)
	}
	newTbl, err := sheet.ReadFile(cfg.NewFile, opts)
	if err != nil {
		return RunStats{}, fmt.Errorf("read new file: %w", err)
	}

	job := Job{
		Old:        oldTbl,
		New:        newTbl,
		LinkMarker: cfg.LinkMarker,
		Thresholds: cfg.Thresholds,
		Pricing:    cfg.Pricing,
		Cost:       model,
	}
	oldT, newT, err := load(job)
	if err != nil {
		return RunStats{}, err
	}

	ids := VideoIDs(newT, cfg.LinkMarker)
	logRunHeader(cfg, log, len(newT.Rows), len(ids), model)

	progress := newProgressLookuper(l, len(ids), term.IsTerminal(os.Stdout))
	enriched, err := enrich.Enrich(ctx, enrich.LookupFunc(progress.lookup), ids, log)
	progress.clear()
	if err != nil {
		return RunStats{}, err
	}

	res := Transform(Input{
		Old:        oldT,
		New:        newT,
		Enriched:   enriched,
		LinkMarker: cfg.LinkMarker,
		Thresholds: cfg.Thresholds,
		Pricing:    cfg.Pricing,
		Cost:       model,
	})

	stats := Summarize(res)
	stats.RunID = runID
	stats.StartedAt = started
	stats.FinishedAt = time.Now()

	for _, d := range res.Diagnostics {
		log.Debug("%s", d)
	}
	PrintPreview(os.Stdout, res)

	doc := res.Document(stats.Record(cfg))
	if err := export.WriteFile(cfg.OutputFile, cfg.OutputFormat, doc); err != nil {
		return stats, fmt.Errorf("write %s: %w", cfg.OutputFile, err)
	}

	logSummary(log, &stats)
	log.Success("Wrote %s (%s)", cfg.OutputFile, cfg.OutputFormat)
	return stats, nil
}

// Record converts the stats into the export run record.
func (s *RunStats) Record(cfg *config.Config) export.RunRecord {
	return export.RunRecord{
		ID:           s.RunID,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
		OldFile:      filepath.Base(cfg.OldFile),
		NewFile:      filepath.Base(cfg.NewFile),
		CostFormula:  cfg.CostFormula,
		Rows:         s.Rows,
		Matched:      s.Matched,
		LookupMisses: s.LookupMisses(),
		Diagnostics:  s.DiagnosticCount(),
		TotalCost:    s.TotalCost,
	}
}

// Document packages the result for export.
func (r *Result) Document(run export.RunRecord) *export.Document {
	doc := &export.Document{
		Results:     export.Sheet{Name: ResultsSheet, Header: r.Columns},
		Diagnostics: export.Sheet{Name: DiagnosticsSheet, Header: DiagnosticColumns},
		Run:         run,
	}
	for i := range r.Rows {
		doc.Results.Rows = append(doc.Results.Rows, r.Rows[i].Values())
	}
	for _, d := range r.Diagnostics {
		doc.Diagnostics.Rows = append(doc.Diagnostics.Rows, d.Values())
	}
	return doc
}

// --- Logging helpers ---

func logRunHeader(cfg *config.Config, log *logging.Logger, rows, ids int, model *classify.CostModel) {
	log.Info("Old: %s", cfg.OldFile)
	log.Info("New: %s (%s rows, %s distinct videos)", cfg.NewFile, display.FormatCount(int64(rows)), display.FormatCount(int64(ids)))
	th := cfg.Thresholds
	log.Info("Rules: bumper < %gs, reach < %gs and < %g views", th.BumperDuration, th.ReachDuration, th.ReachViews)
	log.Info("Cost: %s", model.Formula())
	for _, cat := range config.Categories {
		b, hasB := cfg.Pricing.Benchmarks[cat]
		c, hasC := cfg.Pricing.Costs[cat]
		if !hasB && !hasC {
			continue
		}
		log.Debug("  %-24s benchmark %s, cost %s", cat, priceLabel(b, hasB), priceLabel(c, hasC))
	}
}

func priceLabel(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return display.FormatMoney(v)
}

func logSummary(log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %s rows, %s matched, %s new, %s lookup misses",
		display.FormatCount(int64(stats.Rows)),
		display.FormatCount(int64(stats.Matched)),
		display.FormatCount(int64(stats.Unmatched())),
		display.FormatCount(int64(stats.LookupMisses())))
	log.Info("Summary report:")
	for _, f := range classify.Formats {
		log.Info("  %-16s %s", f, display.FormatCount(int64(stats.Formats[f])))
	}
	log.Info("  Total cost:      %s", display.FormatMoney(stats.TotalCost))
	log.Info("  Elapsed:         %s", stats.Elapsed().Round(time.Millisecond))

	if n := stats.DiagnosticCount(); n > 0 {
		log.Warn("%s diagnostics (see the %s sheet)", display.FormatCount(int64(n)), DiagnosticsSheet)
		for _, k := range Kinds {
			if c := stats.Diagnostics[k]; c > 0 {
				log.Warn("  %-18s %s", k, display.FormatCount(int64(c)))
			}
		}
	} else {
		log.Success("No diagnostics")
	}
	log.Debug("Run id: %s", stats.RunID)
}
