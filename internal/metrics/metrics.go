// Package metrics records operational metrics for a migration run behind a
// small pluggable Backend. The default backend discards everything, so call
// sites never need to check whether metrics are enabled.
//
// Concrete backends live in subpackages (prompush, datadog) and are installed
// once at startup with SetBackend.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal           = "migrate_step_total"
	StepDurationSeconds = "migrate_step_duration_seconds"
	TablesTotal         = "migrate_tables_total"
	RowsTotal           = "migrate_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system has to provide.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, for backends that need it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. A nil b keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the installed backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step and observes its duration.
// Steps are "connect_source", "connect_destination", "list_tables",
// "create_table" and "copy_rows".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordTable counts a finished table by its final status ("copied",
// "skipped", "failed").
func RecordTable(job, status string) {
	backend.IncCounter(TablesTotal, 1, Labels{"job": job, "status": status})
}

// RecordRows adds delta rows of the given kind ("read", "copied", "failed").
// Non-positive deltas are ignored.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}
