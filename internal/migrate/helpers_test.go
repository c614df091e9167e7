package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"sqlite2mysql/internal/datasource/sqlite"
	"sqlite2mysql/internal/schema"
	"sqlite2mysql/internal/storage"
	"sqlite2mysql/internal/storage/mysql"

	_ "modernc.org/sqlite"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeSource creates a SQLite file from stmts and returns its path.
func writeSource(tb testing.TB, stmts ...string) string {
	tb.Helper()

	p := filepath.Join(tb.TempDir(), "source.sqlite")
	db, err := sql.Open("sqlite", p)
	if err != nil {
		tb.Fatalf("open source fixture: %v", err)
	}
	defer db.Close()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			tb.Fatalf("exec %q: %v", s, err)
		}
	}
	return p
}

func openSourceFixture(tb testing.TB, stmts ...string) *sqlite.Source {
	tb.Helper()

	src, err := sqlite.Open(context.Background(), sqlite.Config{Path: writeSource(tb, stmts...)})
	if err != nil {
		tb.Fatalf("sqlite.Open: %v", err)
	}
	tb.Cleanup(func() { _ = src.Close() })
	return src
}

// mysqlShapedDest returns a SQLite-backed destination that renders exactly
// the DDL and inserts the MySQL backend would send.
func mysqlShapedDest(tb testing.TB, path string) *storage.DB {
	tb.Helper()

	if path == "" {
		path = filepath.Join(tb.TempDir(), "dest.sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		tb.Fatalf("open destination: %v", err)
	}
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })
	return storage.NewDB(db, mysql.Dialect)
}

func tableDDL(tb testing.TB, db *sql.DB, name string) string {
	tb.Helper()

	var s string
	err := db.QueryRow(`SELECT sql FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&s)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		tb.Fatalf("read ddl of %s: %v", name, err)
	}
	return s
}

// dump returns every row of table rendered as text, sorted.
func dump(tb testing.TB, db *sql.DB, table string) []string {
	tb.Helper()

	rows, err := db.Query("SELECT * FROM " + table)
	if err != nil {
		tb.Fatalf("select %s: %v", table, err)
	}
	defer rows.Close()
	cols, _ := rows.Columns()

	var out []string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			tb.Fatalf("scan %s: %v", table, err)
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = render(v)
		}
		out = append(out, strings.Join(parts, "|"))
	}
	if err := rows.Err(); err != nil {
		tb.Fatalf("rows %s: %v", table, err)
	}
	sort.Strings(out)
	return out
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return strings.TrimSpace(strings.ReplaceAll(fmt.Sprint(x), "\n", " "))
	}
}

// fakeSource serves tables from memory and counts calls.
type fakeSource struct {
	tables  []schema.Table
	rows    map[string][][]any
	listErr error
	readErr map[string]error
	listed  int
	closed  bool
}

func (f *fakeSource) ListTables(context.Context) ([]string, error) {
	f.listed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, len(f.tables))
	for i, t := range f.tables {
		names[i] = t.Name
	}
	return names, nil
}

func (f *fakeSource) DescribeTable(_ context.Context, name string) (schema.Table, error) {
	for _, t := range f.tables {
		if t.Name == name {
			return t, nil
		}
	}
	return schema.Table{}, sqlite.ErrNoColumns
}

func (f *fakeSource) ReadRows(_ context.Context, t schema.Table) ([][]any, error) {
	if err := f.readErr[t.Name]; err != nil {
		return nil, err
	}
	return f.rows[t.Name], nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

var errDataTooLong = errors.New("Error 1406 (22001): Data too long for column")

// strictDest wraps a destination and rejects string values longer than 255
// characters, the way MySQL strict mode rejects them for VARCHAR(255).
type strictDest struct {
	storage.Destination
	created []string
	commits map[string]int
	closed  bool
}

func newStrictDest(inner storage.Destination) *strictDest {
	return &strictDest{Destination: inner, commits: map[string]int{}}
}

func (d *strictDest) RecreateTable(ctx context.Context, t schema.Table) error {
	if err := d.Destination.RecreateTable(ctx, t); err != nil {
		return err
	}
	d.created = append(d.created, t.Name)
	return nil
}

func (d *strictDest) BeginTable(ctx context.Context, t schema.Table) (storage.TableWriter, error) {
	w, err := d.Destination.BeginTable(ctx, t)
	if err != nil {
		return nil, err
	}
	return &strictWriter{TableWriter: w, table: t.Name, dest: d}, nil
}

func (d *strictDest) Close() error {
	d.closed = true
	return nil
}

type strictWriter struct {
	storage.TableWriter
	table string
	dest  *strictDest
}

func (w *strictWriter) Insert(ctx context.Context, row []any) error {
	for _, v := range row {
		if s, ok := v.(string); ok && len(s) > 255 {
			return errDataTooLong
		}
	}
	return w.TableWriter.Insert(ctx, row)
}

func (w *strictWriter) Commit() error {
	w.dest.commits[w.table]++
	return w.TableWriter.Commit()
}
