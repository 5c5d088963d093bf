package classify

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/backmassage/campaigndelta/internal/config"
)

// CostEnv is the variable set visible to the cost formula. Null counts bind
// as 0; matched tells the formula whether the old-side values are real.
type CostEnv struct {
	Benchmark       float64 `expr:"benchmark"`
	Cost            float64 `expr:"cost"`
	ViewsNew        float64 `expr:"views_new"`
	ViewsOld        float64 `expr:"views_old"`
	ViewsDiff       float64 `expr:"views_diff"`
	ReactionsDiff   float64 `expr:"reactions_diff"`
	Engagement      float64 `expr:"engagement"`
	DurationSeconds float64 `expr:"duration_seconds"`
	Matched         bool    `expr:"matched"`
}

// CostInput is the per-row data a cost is computed from.
type CostInput struct {
	Format          Format
	ViewsNew        int64
	ViewsOld        sql.NullInt64
	ViewsDiff       sql.NullInt64
	ReactionsDiff   sql.NullInt64
	Engagement      sql.NullInt64
	DurationSeconds float64
	Matched         bool
}

// CostModel is a compiled cost formula. It holds no per-row state and is
// safe for concurrent use.
type CostModel struct {
	formula       string
	program       *vm.Program
	usesBenchmark bool
}

// CompileCostModel compiles formula against CostEnv. The result must be
// numeric.
func CompileCostModel(formula string) (*CostModel, error) {
	program, err := expr.Compile(formula, expr.Env(CostEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile cost formula: %w", err)
	}
	tree, err := parser.Parse(formula)
	if err != nil {
		return nil, fmt.Errorf("parse cost formula: %w", err)
	}
	v := &identCollector{names: map[string]bool{}}
	ast.Walk(&tree.Node, v)

	return &CostModel{
		formula:       formula,
		program:       program,
		usesBenchmark: v.names["benchmark"],
	}, nil
}

// Formula returns the source expression.
func (m *CostModel) Formula() string { return m.formula }

// Price evaluates the formula for one row. It never fails: a category with
// no cost entry, a failed evaluation, or a non-finite result all give 0, and
// each degradation is described in notes. A missing benchmark binds as 0
// and is noted when the formula reads it.
func (m *CostModel) Price(in CostInput, p config.Pricing) (cost float64, notes []string) {
	cat := in.Format.Category()

	unitCost, ok := p.Costs[cat]
	if !ok {
		return 0, []string{fmt.Sprintf("no cost entry for %s", cat)}
	}
	benchmark, ok := p.Benchmarks[cat]
	if !ok && m.usesBenchmark {
		notes = append(notes, fmt.Sprintf("no benchmark for %s, using 0", cat))
	}

	env := CostEnv{
		Benchmark:       benchmark,
		Cost:            unitCost,
		ViewsNew:        float64(in.ViewsNew),
		ViewsOld:        nullFloat(in.ViewsOld),
		ViewsDiff:       nullFloat(in.ViewsDiff),
		ReactionsDiff:   nullFloat(in.ReactionsDiff),
		Engagement:      nullFloat(in.Engagement),
		DurationSeconds: in.DurationSeconds,
		Matched:         in.Matched,
	}

	out, err := expr.Run(m.program, env)
	if err != nil {
		return 0, append(notes, fmt.Sprintf("cost formula failed: %v", err))
	}
	f, ok := out.(float64)
	if !ok {
		return 0, append(notes, fmt.Sprintf("cost formula returned %T", out))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, append(notes, fmt.Sprintf("cost formula returned %v", f))
	}
	return f, notes
}

func nullFloat(n sql.NullInt64) float64 {
	if !n.Valid {
		return 0
	}
	return float64(n.Int64)
}

type identCollector struct {
	names map[string]bool
}

func (v *identCollector) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		v.names[id.Value] = true
	}
}
