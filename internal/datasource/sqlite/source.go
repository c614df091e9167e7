// Package sqlite reads tables out of a SQLite database file: the catalog,
// per-table column metadata and full-table scans.
//
// The database is always opened read-only; the migrator never writes to its
// source.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"sqlite2mysql/internal/schema"

	_ "modernc.org/sqlite"
)

// Config holds the source connection settings.
type Config struct {
	// Path is the filesystem path of the SQLite database.
	Path string

	// PingTimeout bounds the open-time probe. Zero means 5s.
	PingTimeout time.Duration
}

// Source is an open, read-only SQLite database.
type Source struct {
	db   *sql.DB
	path string
}

// Open opens cfg.Path read-only and probes the catalog so that a missing,
// unreadable or non-SQLite file fails here instead of mid-run.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: path must not be empty")
	}
	// The driver would otherwise create an empty database at path.
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("sqlite: %s is a directory", path)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var n int
	if err := db.QueryRowContext(probeCtx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: probe %s: %w", path, err)
	}

	return &Source{db: db, path: path}, nil
}

// New wraps an existing handle. Used by tests that build fixtures in memory.
func New(db *sql.DB) *Source {
	return &Source{db: db}
}

// uriPath escapes the characters SQLite's URI parser treats specially in
// the path component.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func dsn(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	return "file:" + uriPath.Replace(path) + "?" + q.Encode()
}

// Path returns the path the source was opened with.
func (s *Source) Path() string { return s.path }

// Close releases the connection pool.
func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListTables returns every table name in the catalog, in catalog order.
func (s *Source) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: list tables: scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
	}
	return names, nil
}

// DescribeTable reads PRAGMA table_info for name. Columns come back in
// declaration order.
func (s *Source) DescribeTable(ctx context.Context, name string) (schema.Table, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return schema.Table{}, fmt.Errorf("sqlite: describe %s: %w", name, err)
	}
	defer rows.Close()

	t := schema.Table{Name: name}
	for rows.Next() {
		var (
			c    schema.Column
			dflt sql.NullString
			pk   int
		)
		if err := rows.Scan(&c.Position, &c.Name, &c.DeclaredType, &c.NotNull, &dflt, &pk); err != nil {
			return schema.Table{}, fmt.Errorf("sqlite: describe %s: scan: %w", name, err)
		}
		if dflt.Valid {
			v := dflt.String
			c.Default = &v
		}
		c.PrimaryKey = pk > 0
		t.Columns = append(t.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return schema.Table{}, fmt.Errorf("sqlite: describe %s: %w", name, err)
	}
	if len(t.Columns) == 0 {
		return schema.Table{}, fmt.Errorf("sqlite: describe %s: %w", name, ErrNoColumns)
	}
	return t, nil
}

// ErrNoColumns is returned by DescribeTable for a name the catalog has no
// columns for (usually a table dropped since ListTables ran).
var ErrNoColumns = errors.New("table has no columns")

// ReadRows scans the whole table. Every returned row has exactly
// len(t.Columns) values, in column order, holding the stored value as-is.
//
// Columns are selected as +"name" expressions. An expression has no declared
// type, so the driver does not turn TEXT stored in DATE, DATETIME or
// TIMESTAMP columns into time.Time.
func (s *Source) ReadRows(ctx context.Context, t schema.Table) ([][]any, error) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = "+" + quoteIdent(c.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(t.Name))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: read %s: scan: %w", t.Name, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", t.Name, err)
	}
	return out, nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
