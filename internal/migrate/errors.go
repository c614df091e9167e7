package migrate

import "fmt"

// ConnectionError reports a store that could not be opened. It is the only
// error that stops a run, and it always happens before any table is touched.
type ConnectionError struct {
	Role string // "source" or "destination"
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Role, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError reports a destination table that could not be dropped or
// created. The table is skipped and the run continues.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("create table %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// RowInsertError reports one row that could not be inserted. Row is the
// 1-based position of the row in the source scan. The row is skipped and the
// remaining rows are still attempted.
type RowInsertError struct {
	Table string
	Row   int
	Err   error
}

func (e *RowInsertError) Error() string {
	return fmt.Sprintf("insert into %s (row %d): %v", e.Table, e.Row, e.Err)
}

func (e *RowInsertError) Unwrap() error { return e.Err }
