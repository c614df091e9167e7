// Package migrate copies every table of a SQLite database into a destination
// store.
//
// A run is strictly sequential. For each source table the destination table
// is dropped and recreated with coarsely mapped column types, then every row
// is read and inserted with a positional parameterised INSERT inside one
// transaction per table. Failures are contained: a table whose creation fails
// is skipped, a row whose insert fails is skipped, and the run carries on.
// Only failing to connect (or to list the source catalog) stops a run.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"sqlite2mysql/internal/metrics"
	"sqlite2mysql/internal/schema"
	"sqlite2mysql/internal/storage"
)

// Source is the read side of a migration. *sqlite.Source implements it.
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, name string) (schema.Table, error)
	ReadRows(ctx context.Context, t schema.Table) ([][]any, error)
}

// Options tune a Migrator. The zero value migrates every table and logs to
// slog.Default().
type Options struct {
	// Job labels metrics and the summary.
	Job string

	// Include and Exclude are path.Match patterns over table names. An empty
	// Include selects every table; Exclude wins over Include.
	Include []string
	Exclude []string

	Logger *slog.Logger
}

// Migrator drives the copy of every table from src to dst.
type Migrator struct {
	src  Source
	dst  storage.Destination
	opts Options
	log  *slog.Logger
}

// New returns a Migrator over already opened stores. The caller keeps
// ownership of both and closes them.
func New(src Source, dst storage.Destination, opts Options) *Migrator {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	if opts.Job == "" {
		opts.Job = "sqlite2mysql"
	}
	return &Migrator{src: src, dst: dst, opts: opts, log: l}
}

// ListTables returns the source tables selected by the include/exclude
// patterns, in catalog order.
func (m *Migrator) ListTables(ctx context.Context) ([]string, error) {
	start := time.Now()
	all, err := m.src.ListTables(ctx)
	metrics.RecordStep(m.opts.Job, "list_tables", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(all))
	for _, name := range all {
		ok, err := m.selected(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			m.log.Debug("table filtered out", "table", name)
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (m *Migrator) selected(name string) (bool, error) {
	for _, p := range m.opts.Exclude {
		ok, err := path.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		if ok {
			return false, nil
		}
	}
	if len(m.opts.Include) == 0 {
		return true, nil
	}
	for _, p := range m.opts.Include {
		ok, err := path.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("include pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// DescribeTable reads the column metadata of name from the source.
func (m *Migrator) DescribeTable(ctx context.Context, name string) (schema.Table, error) {
	return m.src.DescribeTable(ctx, name)
}

// CreateTable drops and recreates t on the destination. Failures come back
// as *SchemaError.
func (m *Migrator) CreateTable(ctx context.Context, t schema.Table) error {
	start := time.Now()
	err := m.dst.RecreateTable(ctx, t)
	metrics.RecordStep(m.opts.Job, "create_table", err, time.Since(start))
	if err != nil {
		return &SchemaError{Table: t.Name, Err: err}
	}
	return nil
}

// CopyResult counts what CopyRows did with one table.
type CopyResult struct {
	Read    int64
	Copied  int64
	Failed  int64
	Samples []string
	Digest  string
}

// CopyRows reads every row of t from the source and inserts them into the
// destination inside one transaction, committed exactly once. A row that
// fails to insert is logged as a *RowInsertError and skipped; the commit
// still happens. The returned error is reserved for failures that affect the
// table as a whole: reading the source, opening or committing the
// transaction.
func (m *Migrator) CopyRows(ctx context.Context, t schema.Table) (res CopyResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordStep(m.opts.Job, "copy_rows", err, time.Since(start))
		metrics.RecordRows(m.opts.Job, "read", res.Read)
		metrics.RecordRows(m.opts.Job, "copied", res.Copied)
		metrics.RecordRows(m.opts.Job, "failed", res.Failed)
	}()

	rows, err := m.src.ReadRows(ctx, t)
	if err != nil {
		return res, err
	}
	res.Read = int64(len(rows))

	w, err := m.dst.BeginTable(ctx, t)
	if err != nil {
		return res, err
	}

	digest := newRowDigest()
	for i, row := range rows {
		digest.add(row)

		var insErr error
		if len(row) != len(t.Columns) {
			insErr = fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
		} else {
			insErr = w.Insert(ctx, row)
		}
		if insErr != nil {
			rowErr := &RowInsertError{Table: t.Name, Row: i + 1, Err: insErr}
			m.log.Error("insert row failed", "table", t.Name, "row", rowErr.Row, "err", insErr)
			res.Failed++
			if len(res.Samples) < maxErrorSamples {
				res.Samples = append(res.Samples, rowErr.Error())
			}
			continue
		}
		res.Copied++
	}
	res.Digest = digest.Sum()

	if err := w.Commit(); err != nil {
		res.Copied = 0
		return res, err
	}
	return res, nil
}

// MigrateTable describes, recreates and copies one table. It never returns
// an error: every outcome is recorded in the result.
func (m *Migrator) MigrateTable(ctx context.Context, name string) TableResult {
	start := time.Now()
	res := TableResult{Table: name}
	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordTable(m.opts.Job, string(res.Status))
	}()

	m.log.Info("migrating table", "table", name)

	t, err := m.DescribeTable(ctx, name)
	if err != nil {
		m.log.Error("describe table failed", "table", name, "err", err)
		res.Status, res.Error = StatusFailed, err.Error()
		return res
	}
	res.Columns = len(t.Columns)

	if err := m.CreateTable(ctx, t); err != nil {
		m.log.Error("create table failed", "table", name, "err", errors.Unwrap(err))
		res.Status, res.Error = StatusSkipped, err.Error()
		return res
	}
	m.log.Info("table created", "table", name, "columns", len(t.Columns))

	cr, err := m.CopyRows(ctx, t)
	res.RowsRead, res.RowsCopied, res.RowErrors = cr.Read, cr.Copied, cr.Failed
	res.Samples, res.Digest = cr.Samples, cr.Digest
	if err != nil {
		m.log.Error("copy rows failed", "table", name, "err", err)
		res.Status, res.Error = StatusFailed, err.Error()
		return res
	}

	res.Status = StatusCopied
	m.log.Info("table migrated", "table", name, "rows", cr.Copied, "row_errors", cr.Failed)
	return res
}

// Migrate lists the source tables and migrates each in turn. The returned
// error is non-nil only when the catalog cannot be listed; per-table and
// per-row failures are reported in the Summary, which is always marked
// Completed once the loop finishes.
func (m *Migrator) Migrate(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		Job:         m.opts.Job,
		Destination: m.dst.Kind(),
		StartedAt:   time.Now(),
	}

	tables, err := m.ListTables(ctx)
	if err != nil {
		return sum, fmt.Errorf("list tables: %w", err)
	}

	for _, name := range tables {
		sum.Tables = append(sum.Tables, m.MigrateTable(ctx, name))
	}

	sum.Completed = true
	sum.Duration = time.Since(sum.StartedAt)
	m.log.Info("migration complete",
		"tables", len(sum.Tables),
		"copied", sum.Count(StatusCopied),
		"skipped", sum.Count(StatusSkipped),
		"failed", sum.Count(StatusFailed),
		"rows", sum.TotalRows(),
		"elapsed", sum.Duration.Truncate(time.Millisecond),
	)
	return sum, nil
}
