package export

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

func writeSQLite(path string, doc *Document) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeTable(tx, "results", doc.Run.ID, &doc.Results); err != nil {
		return fmt.Errorf("results table: %w", err)
	}
	if err := writeTable(tx, "diagnostics", doc.Run.ID, &doc.Diagnostics); err != nil {
		return fmt.Errorf("diagnostics table: %w", err)
	}
	if err := writeRun(tx, &doc.Run); err != nil {
		return fmt.Errorf("runs table: %w", err)
	}
	return tx.Commit()
}

// writeSQLiteTo builds the database in a temp file and copies it to w.
func writeSQLiteTo(w io.Writer, doc *Document) error {
	tmp, err := os.CreateTemp("", "campaigndelta-*.sqlite")
	if err != nil {
		return err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := writeSQLite(path, doc); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func writeTable(tx *sql.Tx, table, runID string, sh *Sheet) error {
	defs := []string{`"run_id" TEXT NOT NULL`}
	cols := []string{`"run_id"`}
	for i, h := range sh.Header {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(h), columnType(sh.Rows, i)))
		cols = append(cols, quoteIdent(h))
	}
	if _, err := tx.Exec(`CREATE TABLE ` + quoteIdent(table) + ` (` + strings.Join(defs, ",") + `)`); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.Prepare(`INSERT INTO ` + quoteIdent(table) + ` (` + strings.Join(cols, ",") + `) VALUES (` + ph + `)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range sh.Rows {
		args := make([]any, 0, len(cols))
		args = append(args, runID)
		for i := range sh.Header {
			var v any
			if i < len(row) {
				v = sqliteValue(row[i])
			}
			args = append(args, v)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	return nil
}

func writeRun(tx *sql.Tx, r *RunRecord) error {
	const ddl = `CREATE TABLE "runs" (
		"run_id" TEXT PRIMARY KEY,
		"started_at" TEXT,
		"finished_at" TEXT,
		"old_file" TEXT,
		"new_file" TEXT,
		"cost_formula" TEXT,
		"rows" INTEGER,
		"matched" INTEGER,
		"lookup_misses" INTEGER,
		"diagnostics" INTEGER,
		"total_cost" REAL
	)`
	if _, err := tx.Exec(ddl); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO "runs" VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
		r.OldFile,
		r.NewFile,
		r.CostFormula,
		r.Rows,
		r.Matched,
		r.LookupMisses,
		r.Diagnostics,
		r.TotalCost,
	)
	return err
}

// columnType picks the SQLite type from the first non-nil value in column i.
// Mixed columns fall back to TEXT.
func columnType(rows [][]any, i int) string {
	typ := ""
	for _, row := range rows {
		if i >= len(row) || row[i] == nil {
			continue
		}
		var t string
		switch row[i].(type) {
		case int64, int, bool:
			t = "INTEGER"
		case float64:
			t = "REAL"
		default:
			t = "TEXT"
		}
		switch {
		case typ == "":
			typ = t
		case typ != t:
			if (typ == "INTEGER" && t == "REAL") || (typ == "REAL" && t == "INTEGER") {
				typ = "REAL"
			} else {
				return "TEXT"
			}
		}
	}
	if typ == "" {
		return "TEXT"
	}
	return typ
}

func sqliteValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return t
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
