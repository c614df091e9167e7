package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sqlite2mysql/internal/ddl"
	"sqlite2mysql/internal/schema"
)

// Savepoints holds the statements a dialect uses to isolate one row insert
// inside a larger transaction. Release may be empty.
//
// State, when set, is a query returning one integer, run after a failed
// insert. A negative result means the server has doomed the transaction:
// it can no longer be rolled back to the savepoint, only as a whole.
type Savepoints struct {
	Save     string
	Rollback string
	Release  string
	State    string
}

// ErrTxDoomed is returned by TableWriter once the server has marked the
// table's transaction uncommittable. Nothing of the table is committed.
var ErrTxDoomed = errors.New("transaction is doomed and can only be rolled back")

// Dialect captures what differs between SQL backends.
type Dialect struct {
	Name        string
	Types       ddl.TypeNames
	Placeholder ddl.Placeholder

	// RowSavepoints is set for backends whose transactions become unusable
	// after a failed statement (Postgres). Each insert then runs inside a
	// savepoint that is rolled back on failure.
	RowSavepoints *Savepoints
}

// DB is a Destination backed by database/sql.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

var _ Destination = (*DB)(nil)

// NewDB wraps an open handle.
func NewDB(db *sql.DB, d Dialect) *DB {
	return &DB{db: db, dialect: d}
}

// OpenDB pings db within cfg's connect timeout and wraps it. db is closed
// when the ping fails.
func OpenDB(ctx context.Context, db *sql.DB, d Dialect, cfg Config) (*DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: %s: ping: %w", d.Name, err)
	}
	return NewDB(db, d), nil
}

// Kind implements Destination.
func (d *DB) Kind() string { return d.dialect.Name }

// Dialect returns the dialect the destination renders SQL with.
func (d *DB) Dialect() Dialect { return d.dialect }

// SQL exposes the underlying handle.
func (d *DB) SQL() *sql.DB { return d.db }

// Close implements Destination.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// RecreateTable implements Destination.
func (d *DB) RecreateTable(ctx context.Context, t schema.Table) error {
	drop, err := ddl.BuildDropTableSQL(t.Name)
	if err != nil {
		return err
	}
	create, err := ddl.BuildCreateTableSQL(ddl.FromTable(t, d.dialect.Types))
	if err != nil {
		return err
	}

	if _, err := d.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("storage: %s: drop %s: %w", d.dialect.Name, t.Name, err)
	}
	if _, err := d.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("storage: %s: create %s: %w", d.dialect.Name, t.Name, err)
	}
	return nil
}

// BeginTable implements Destination.
func (d *DB) BeginTable(ctx context.Context, t schema.Table) (TableWriter, error) {
	insert, err := ddl.BuildInsertSQL(t.Name, len(t.Columns), d.dialect.Placeholder)
	if err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: begin tx: %w", d.dialect.Name, err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("storage: %s: prepare insert into %s: %w", d.dialect.Name, t.Name, err)
	}

	return &txWriter{
		tx:      tx,
		stmt:    stmt,
		width:   len(t.Columns),
		dialect: d.dialect.Name,
		sp:      d.dialect.RowSavepoints,
	}, nil
}

type txWriter struct {
	tx      *sql.Tx
	stmt    *sql.Stmt
	width   int
	dialect string
	sp      *Savepoints
	doomed  error
}

func (w *txWriter) Insert(ctx context.Context, row []any) error {
	if w.doomed != nil {
		return w.doomed
	}
	if len(row) != w.width {
		return fmt.Errorf("storage: %s: row has %d values, table has %d columns", w.dialect, len(row), w.width)
	}
	if w.sp == nil {
		if _, err := w.stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("storage: %s: insert: %w", w.dialect, err)
		}
		return nil
	}

	if _, err := w.tx.ExecContext(ctx, w.sp.Save); err != nil {
		return fmt.Errorf("storage: %s: savepoint: %w", w.dialect, err)
	}
	if _, err := w.stmt.ExecContext(ctx, row...); err != nil {
		if w.isDoomed(ctx) {
			w.doomed = fmt.Errorf("storage: %s: %w", w.dialect, ErrTxDoomed)
			return fmt.Errorf("storage: %s: insert: %w (%w)", w.dialect, err, ErrTxDoomed)
		}
		if _, rbErr := w.tx.ExecContext(ctx, w.sp.Rollback); rbErr != nil {
			return fmt.Errorf("storage: %s: insert: %w (rollback to savepoint: %v)", w.dialect, err, rbErr)
		}
		return fmt.Errorf("storage: %s: insert: %w", w.dialect, err)
	}
	if w.sp.Release != "" {
		if _, err := w.tx.ExecContext(ctx, w.sp.Release); err != nil {
			return fmt.Errorf("storage: %s: release savepoint: %w", w.dialect, err)
		}
	}
	return nil
}

// isDoomed asks the server whether the transaction survived the last error.
// A failing state query counts as usable; the savepoint rollback decides.
func (w *txWriter) isDoomed(ctx context.Context) bool {
	if w.sp.State == "" {
		return false
	}
	var state int
	if err := w.tx.QueryRowContext(ctx, w.sp.State).Scan(&state); err != nil {
		return false
	}
	return state < 0
}

func (w *txWriter) Commit() error {
	_ = w.stmt.Close()
	if w.doomed != nil {
		_ = w.tx.Rollback()
		return fmt.Errorf("storage: %s: commit: %w", w.dialect, w.doomed)
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("storage: %s: commit: %w", w.dialect, err)
	}
	return nil
}

func (w *txWriter) Rollback() error {
	_ = w.stmt.Close()
	if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("storage: %s: rollback: %w", w.dialect, err)
	}
	return nil
}
