package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Status is the outcome of one table.
type Status string

const (
	// StatusCopied: the table was created and its rows attempted and
	// committed. Individual rows may still have failed (see RowErrors).
	StatusCopied Status = "copied"
	// StatusSkipped: the destination table could not be created; no rows
	// were copied.
	StatusSkipped Status = "skipped"
	// StatusFailed: the table could not be described or read, or its
	// transaction could not be started or committed.
	StatusFailed Status = "failed"
)

// maxErrorSamples caps how many row errors a TableResult keeps.
const maxErrorSamples = 10

// TableResult is the per-table entry of a Summary.
type TableResult struct {
	Table      string        `json:"table"`
	Status     Status        `json:"status"`
	Columns    int           `json:"columns"`
	RowsRead   int64         `json:"rows_read"`
	RowsCopied int64         `json:"rows_copied"`
	RowErrors  int64         `json:"row_errors"`
	Error      string        `json:"error,omitempty"`
	Samples    []string      `json:"row_error_samples,omitempty"`
	Digest     string        `json:"digest,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// Summary describes a whole run. Completed is true once every listed table
// has been attempted, however many of them failed.
type Summary struct {
	Job         string        `json:"job"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Tables      []TableResult `json:"tables"`
	Completed   bool          `json:"completed"`
}

// TotalRows returns the number of rows copied across all tables.
func (s *Summary) TotalRows() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.RowsCopied
	}
	return n
}

// Count returns how many tables ended with status st.
func (s *Summary) Count(st Status) int {
	n := 0
	for _, t := range s.Tables {
		if t.Status == st {
			n++
		}
	}
	return n
}

// Table returns the result for name, if that table was processed.
func (s *Summary) Table(name string) (TableResult, bool) {
	for _, t := range s.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableResult{}, false
}

// WriteReport writes s as indented JSON to path.
func (s *Summary) WriteReport(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
