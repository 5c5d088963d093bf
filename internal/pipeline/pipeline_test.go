package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/campaigndelta/internal/classify"
	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/export"
	"github.com/backmassage/campaigndelta/internal/loader"
	"github.com/backmassage/campaigndelta/internal/logging"
	"github.com/backmassage/campaigndelta/internal/sheet"
	"github.com/backmassage/campaigndelta/internal/youtube"
)

// --- Helpers ---

var testThresholds = config.Thresholds{BumperDuration: 35, ReachDuration: 61, ReachViews: 1000}

func testPricing() config.Pricing {
	return config.Pricing{
		Benchmarks: map[config.Category]float64{
			config.CategoryFacebook:              1,
			config.CategoryYouTubeBumper:         2,
			config.CategoryYouTubeSkippableReach: 3,
		},
		Costs: map[config.Category]float64{
			config.CategoryFacebook:             0.1,
			config.CategoryYouTubeBumper:        0.5,
			config.CategoryYouTubeSkippableView: 0.03,
		},
	}
}

func count(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }

func oldTable(rows ...[]string) *sheet.Table {
	return &sheet.Table{
		Header: []string{loader.ColumnLink, loader.ColumnEngagement, loader.ColumnViews},
		Rows:   rows,
	}
}

func newTable(rows ...[]string) *sheet.Table {
	return &sheet.Table{
		Header: []string{"Campaign", loader.ColumnLink, loader.ColumnEngagement},
		Rows:   rows,
	}
}

type fakeLookuper struct {
	data  map[string]youtube.Metadata
	calls []string
}

func (f *fakeLookuper) Lookup(_ context.Context, id string) (youtube.Metadata, error) {
	f.calls = append(f.calls, id)
	md, ok := f.data[id]
	if !ok {
		return youtube.Metadata{}, fmt.Errorf("%q: %w", id, youtube.ErrNotFound)
	}
	return md, nil
}

func testJob(t *testing.T, old, new *sheet.Table) Job {
	t.Helper()
	model, err := classify.CompileCostModel("cost * views_diff")
	require.NoError(t, err)
	return Job{
		Old:        old,
		New:        new,
		LinkMarker: "watch?v=",
		Thresholds: testThresholds,
		Pricing:    testPricing(),
		Cost:       model,
	}
}

func kinds(diags []Diagnostic) []Kind {
	var out []Kind
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

// --- Process / Transform ---

func TestProcess_MatchedRow(t *testing.T) {
	f := &fakeLookuper{data: map[string]youtube.Metadata{
		"abc": {VideoID: "abc", Views: 150, Duration: "PT0M30S"},
	}}
	job := testJob(t,
		oldTable([]string{"https://youtube.com/watch?v=abc", "10", "100"}),
		newTable([]string{"Spring", "https://youtube.com/watch?v=abc", "15"}),
	)

	res, err := Process(context.Background(), job, f, logging.Nop())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	want := Row{
		Link:            "https://youtube.com/watch?v=abc",
		Cells:           []string{"Spring", "15"},
		Matched:         true,
		ReactionsDiff:   count(5),
		ViewsOld:        count(100),
		ViewsNew:        150,
		Duration:        "PT0M30S",
		ViewsDiff:       count(50),
		DurationSeconds: 30,
		Format:          classify.FormatBumper,
		Cost:            25,
	}
	if diff := cmp.Diff(want, res.Rows[0]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"abc"}, f.calls)
}

func TestProcess_MissingColumnBeforeLookup(t *testing.T) {
	f := &fakeLookuper{}
	job := testJob(t,
		&sheet.Table{Header: []string{loader.ColumnEngagement, loader.ColumnViews}},
		newTable([]string{"Spring", "watch?v=abc", "15"}),
	)

	_, err := Process(context.Background(), job, f, logging.Nop())
	var mce *loader.MissingColumnError
	require.True(t, errors.As(err, &mce), "got %v", err)
	assert.Equal(t, loader.ColumnLink, mce.Column)
	assert.Contains(t, err.Error(), "Link")
	assert.Empty(t, f.calls, "no lookup may happen after a column error")
}

func TestProcess_DuplicateLinkIsFatal(t *testing.T) {
	f := &fakeLookuper{}
	job := testJob(t,
		oldTable(),
		newTable([]string{"a", "watch?v=x", "1"}, []string{"b", "watch?v=x", "2"}),
	)
	_, err := Process(context.Background(), job, f, logging.Nop())
	var dup *loader.DuplicateLinkError
	require.ErrorAs(t, err, &dup)
	assert.Empty(t, f.calls)
}

func TestProcess_LookupMiss(t *testing.T) {
	f := &fakeLookuper{}
	job := testJob(t,
		oldTable([]string{"watch?v=gone", "10", "100"}),
		newTable([]string{"Spring", "watch?v=gone", "12"}),
	)

	res, err := Process(context.Background(), job, f, logging.Nop())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	r := res.Rows[0]
	assert.Equal(t, int64(0), r.ViewsNew)
	assert.Equal(t, "", r.Duration)
	assert.Equal(t, 0.0, r.DurationSeconds)
	assert.Equal(t, count(-100), r.ViewsDiff)
	assert.Equal(t, count(2), r.ReactionsDiff)
	assert.Equal(t, []Kind{KindLookupMiss}, kinds(res.Diagnostics))
	assert.Contains(t, res.Diagnostics[0].Detail, "not found")
	assert.Equal(t, 1, res.Diagnostics[0].Row)
}

func TestTransform_UnmatchedLinkKeepsBlanks(t *testing.T) {
	oldT, err := loader.LoadOld(oldTable([]string{"watch?v=other", "1", "1"}))
	require.NoError(t, err)
	newT, err := loader.LoadNew(newTable([]string{"Fresh", "watch?v=new", "40"}))
	require.NoError(t, err)
	job := testJob(t, nil, nil)

	res := Transform(Input{
		Old: oldT,
		New: newT,
		Enriched: &enrich.Result{Metadata: map[string]youtube.Metadata{
			"new": {VideoID: "new", Views: 500, Duration: "PT45S"},
		}},
		LinkMarker: "watch?v=",
		Thresholds: testThresholds,
		Pricing:    testPricing(),
		Cost:       job.Cost,
	})

	require.Len(t, res.Rows, 1, "old-only rows are dropped")
	r := res.Rows[0]
	assert.False(t, r.Matched)
	assert.False(t, r.ReactionsDiff.Valid)
	assert.False(t, r.ViewsOld.Valid)
	assert.False(t, r.ViewsDiff.Valid)
	assert.Equal(t, int64(500), r.ViewsNew)
	assert.Equal(t, classify.FormatSkippableView, r.Format, "null diff never qualifies for reach")
	assert.Equal(t, 0.0, r.Cost, "null views_diff binds as 0")
	assert.Equal(t, []Kind{KindUnmatchedLink}, kinds(res.Diagnostics))

	vals := r.Values()
	require.Len(t, vals, len(res.Columns))
	assert.Nil(t, vals[3], "Reactions_Diff blank")
	assert.Nil(t, vals[4], "Views_Old blank")
	assert.Nil(t, vals[7], "Views_Diff blank")
}

func TestTransform_DegradedValues(t *testing.T) {
	oldT, err := loader.LoadOld(oldTable(
		[]string{"watch?v=a", "x", "100"},
		[]string{"watch?v=b", "1", "100"},
	))
	require.NoError(t, err)
	newT, err := loader.LoadNew(newTable(
		[]string{"A", "watch?v=a", "5"},
		[]string{"B", "watch?v=b", "9"},
	))
	require.NoError(t, err)
	job := testJob(t, nil, nil)

	res := Transform(Input{
		Old: oldT,
		New: newT,
		Enriched: &enrich.Result{Metadata: map[string]youtube.Metadata{
			"a": {VideoID: "a", Views: 300, Duration: "two minutes"},
			"b": {VideoID: "b", Views: 150, Duration: "PT50S"},
		}},
		LinkMarker: "watch?v=",
		Thresholds: testThresholds,
		Pricing:    testPricing(),
		Cost:       job.Cost,
	})

	require.Len(t, res.Rows, 2)
	a, b := res.Rows[0], res.Rows[1]

	assert.False(t, a.ReactionsDiff.Valid, "non-numeric old engagement blanks the diff")
	assert.Equal(t, 0.0, a.DurationSeconds)
	assert.Equal(t, classify.FormatBumper, a.Format)

	assert.Equal(t, classify.FormatSkippableReach, b.Format)
	assert.Equal(t, 0.0, b.Cost, "no cost entry for skippable reach")

	assert.ElementsMatch(t,
		[]Kind{KindNumericCoercion, KindDurationParse, KindUnclassifiedCost},
		kinds(res.Diagnostics))
}

func TestTransform_CostIsPure(t *testing.T) {
	oldT, _ := loader.LoadOld(oldTable([]string{"watch?v=a", "1", "10"}))
	newT, _ := loader.LoadNew(newTable([]string{"A", "watch?v=a", "2"}))
	job := testJob(t, nil, nil)
	in := Input{
		Old:        oldT,
		New:        newT,
		Enriched:   &enrich.Result{Metadata: map[string]youtube.Metadata{"a": {Views: 5000, Duration: "PT2M"}}},
		LinkMarker: "watch?v=",
		Thresholds: testThresholds,
		Pricing:    testPricing(),
		Cost:       job.Cost,
	}
	first := Transform(in)
	second := Transform(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Transform not deterministic:\n%s", diff)
	}
	assert.InDelta(t, 0.03*4990, first.Rows[0].Cost, 1e-9)
}

func TestOutputColumns(t *testing.T) {
	got := OutputColumns([]string{"Campaign", loader.ColumnEngagement})
	want := []string{
		"Link", "Campaign", "Number of Reactions, Comments & Shares",
		"Reactions_Diff", "Views_Old", "Views_New", "Duration",
		"Views_Diff", "duration_seconds", "ad.format", "Cost",
	}
	assert.Equal(t, want, got)
}

func TestOutputColumns_SameNamedInputIsReplaced(t *testing.T) {
	got := OutputColumns([]string{loader.ColumnEngagement, "Duration", "Ad ID", "cost", "Link"})
	want := []string{
		"Link", "Number of Reactions, Comments & Shares", "Ad ID",
		"Reactions_Diff", "Views_Old", "Views_New", "Duration",
		"Views_Diff", "duration_seconds", "ad.format", "Cost",
	}
	assert.Equal(t, want, got)
}

func TestTransform_InputColumnNamedLikeDerived(t *testing.T) {
	f := &fakeLookuper{data: map[string]youtube.Metadata{
		"abc": {VideoID: "abc", Views: 150, Duration: "PT0M30S"},
	}}
	job := testJob(t,
		oldTable([]string{"https://youtube.com/watch?v=abc", "10", "100"}),
		&sheet.Table{
			Header: []string{loader.ColumnLink, loader.ColumnEngagement, "Duration", "Ad ID"},
			Rows:   [][]string{{"https://youtube.com/watch?v=abc", "15", "stale", "000123"}},
		},
	)

	res, err := Process(context.Background(), job, f, logging.Nop())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	assert.Equal(t, []string{"15", "000123"}, res.Rows[0].Cells)
	values := res.Rows[0].Values()
	require.Len(t, values, len(res.Columns))
	for i, c := range res.Columns {
		if c == ColDuration {
			assert.Equal(t, "PT0M30S", values[i])
		}
	}

	path := filepath.Join(t.TempDir(), "out.sqlite")
	require.NoError(t, export.WriteFile(path, config.FormatSQLite, res.Document(export.RunRecord{ID: "run-d"})))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var duration, adID string
	require.NoError(t, db.QueryRow(`SELECT "Duration", "Ad ID" FROM results`).Scan(&duration, &adID))
	assert.Equal(t, "PT0M30S", duration)
	assert.Equal(t, "000123", adID)
}

func TestVideoIDs(t *testing.T) {
	newT, err := loader.LoadNew(newTable(
		[]string{"a", "https://youtube.com/watch?v=abc", "1"},
		[]string{"b", "https://m.youtube.com/watch?v=abc", "1"},
		[]string{"c", "https://youtube.com/watch?v=def", "1"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, VideoIDs(newT, "watch?v="))
}

// --- Stats / document ---

func TestSummarize(t *testing.T) {
	res := &Result{
		Rows: []Row{
			{Matched: true, Format: classify.FormatBumper, Cost: 1.5},
			{Matched: true, Format: classify.FormatBumper, Cost: 2},
			{Format: classify.FormatSkippableView},
		},
		Diagnostics: []Diagnostic{{Kind: KindUnmatchedLink}, {Kind: KindLookupMiss}, {Kind: KindLookupMiss}},
	}
	s := Summarize(res)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 2, s.Matched)
	assert.Equal(t, 1, s.Unmatched())
	assert.Equal(t, 2, s.Formats[classify.FormatBumper])
	assert.Equal(t, 2, s.LookupMisses())
	assert.Equal(t, 3, s.DiagnosticCount())
	assert.Equal(t, 3.5, s.TotalCost)
}

func TestDocument(t *testing.T) {
	res := &Result{
		Columns:     OutputColumns(nil),
		Rows:        []Row{{Link: "watch?v=a", ViewsNew: 3, Format: classify.FormatBumper}},
		Diagnostics: []Diagnostic{{Kind: KindLookupMiss, Row: 1, Link: "watch?v=a", Detail: "x"}},
	}
	doc := res.Document(export.RunRecord{ID: "run-x"})
	assert.Equal(t, ResultsSheet, doc.Results.Name)
	require.Len(t, doc.Results.Rows, 1)
	assert.Len(t, doc.Results.Rows[0], len(res.Columns))
	assert.Equal(t, []any{"lookup_miss", int64(1), "watch?v=a", "x"}, doc.Diagnostics.Rows[0])
	assert.Equal(t, "run-x", doc.Run.ID)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, int64(42), cellValue("42"))
	assert.Equal(t, 1.5, cellValue(" 1.5 "))
	assert.Equal(t, "1,200", cellValue("1,200"))
	assert.Equal(t, "NaN", cellValue("NaN"))
	assert.Equal(t, "Spring", cellValue("Spring"))
	assert.Equal(t, "", cellValue(""))

	// Text that would not survive a round trip stays text.
	assert.Equal(t, "000123", cellValue("000123"))
	assert.Equal(t, "+5", cellValue("+5"))
	assert.Equal(t, "1.50", cellValue("1.50"))
	assert.Equal(t, "1e3", cellValue("1e3"))
	assert.Equal(t, "12345678901234567890", cellValue("12345678901234567890"))
	assert.Equal(t, "Inf", cellValue("Inf"))
}

// --- Run ---

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.HeaderOffset = 1
	cfg.OldFile = writeFile(t, dir, "old.csv",
		"Exported report\n"+
			"Link,\"Number of Reactions, Comments & Shares\",Views per Video\n"+
			"https://youtube.com/watch?v=abc,10,100\n"+
			"https://youtube.com/watch?v=old,1,1\n")
	cfg.NewFile = writeFile(t, dir, "new.csv",
		"Exported report\n"+
			"Link,\"Number of Reactions, Comments & Shares\"\n"+
			"https://youtube.com/watch?v=abc,15\n"+
			"https://youtube.com/watch?v=new,3\n")
	cfg.OutputFile = filepath.Join(dir, "Output.csv")
	cfg.OutputFormat = config.FormatCSV
	cfg.Thresholds = testThresholds
	cfg.Pricing = testPricing()
	cfg.CostFormula = "cost * views_diff"
	return &cfg
}

func TestRunWith_WritesOutput(t *testing.T) {
	cfg := runConfig(t)
	f := &fakeLookuper{data: map[string]youtube.Metadata{
		"abc": {VideoID: "abc", Views: 150, Duration: "PT0M30S"},
		"new": {VideoID: "new", Views: 70, Duration: "PT3M"},
	}}

	stats, err := RunWith(context.Background(), cfg, f, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.Matched)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 25.0, stats.TotalCost)

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `Link,"Number of Reactions, Comments & Shares",Reactions_Diff,Views_Old,Views_New,Duration,Views_Diff,duration_seconds,ad.format,Cost`, lines[0])
	assert.Equal(t, "https://youtube.com/watch?v=abc,15,5,100,150,PT0M30S,50,30,bumper,25", lines[1])
	assert.Equal(t, "https://youtube.com/watch?v=new,3,,,70,PT3M,,180,skippable_view,0", lines[2])
}

func TestRunWith_CanceledWritesNothing(t *testing.T) {
	cfg := runConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunWith(ctx, cfg, &fakeLookuper{}, logging.Nop())
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.OutputFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunWith_BadFormula(t *testing.T) {
	cfg := runConfig(t)
	cfg.CostFormula = "cost *"
	_, err := RunWith(context.Background(), cfg, &fakeLookuper{}, logging.Nop())
	assert.Error(t, err)
}

// --- Preview ---

func TestPrintPreview(t *testing.T) {
	res := &Result{}
	for i, d := range []int64{10, 12, 11, 13, 12, 500} {
		res.Rows = append(res.Rows, Row{
			Link:      fmt.Sprintf("watch?v=%d", i),
			ViewsDiff: count(d),
			Format:    classify.FormatSkippableView,
		})
	}
	var buf bytes.Buffer
	PrintPreview(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Views Diff")
	assert.Contains(t, out, "watch?v=5")
	assert.Equal(t, 1, strings.Count(out, "[!]"), "only the 500 row is extreme")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 3.0, percentile(sorted, 50))
	assert.Equal(t, 2.0, percentile(sorted, 25))
	assert.Equal(t, 0.0, percentile(nil, 50))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncate("éééééé", 4), "cuts on rune boundaries")
	assert.Equal(t, 4, width("éééé"))
}

func TestPrintPreview_MultibyteLink(t *testing.T) {
	long := "https://youtube.com/watch?v=abc&t=" + strings.Repeat("é", 40)
	res := &Result{Rows: []Row{{Link: long, ViewsDiff: count(1)}}}

	var buf bytes.Buffer
	PrintPreview(&buf, res)
	out := buf.String()

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, long)
}

func TestProgressLine_TruncatesID(t *testing.T) {
	var buf bytes.Buffer
	f := &fakeLookuper{data: map[string]youtube.Metadata{}}
	p := &progressLookuper{inner: f, out: &buf, total: 2, enabled: true}

	id := strings.Repeat("x", 60)
	_, err := enrich.LookupFunc(p.lookup).Lookup(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, []string{id}, f.calls)
	assert.Equal(t, 1, p.misses)

	line := strings.Split(buf.String(), "\r")[1]
	assert.Contains(t, line, "Fetching [1/2] 50%")
	assert.Contains(t, line, strings.Repeat("x", 39)+"…")
	assert.NotContains(t, line, id)
	assert.Equal(t, 80, width(line))
}
