package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend records every call for assertions.
type fakeBackend struct {
	mu sync.Mutex

	counters   []call
	histograms []call
	flushes    int
}

type call struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })

	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("job", "create_table", nil, 2*time.Second)
	RecordStep("job", "copy_rows", errors.New("boom"), 500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls: counters=%d histograms=%d", len(fb.counters), len(fb.histograms))
	}
	if c := fb.counters[0]; c.name != StepTotal || c.value != 1 || c.labels["status"] != "success" || c.labels["step"] != "create_table" {
		t.Fatalf("counter[0] = %+v", c)
	}
	if c := fb.counters[1]; c.labels["status"] != "failure" || c.labels["job"] != "job" {
		t.Fatalf("counter[1] = %+v", c)
	}
	if h := fb.histograms[1]; h.name != StepDurationSeconds || h.value != 0.5 {
		t.Fatalf("histogram[1] = %+v", h)
	}
}

func TestRecordTable(t *testing.T) {
	fb := install(t)

	RecordTable("job", "skipped")

	if len(fb.counters) != 1 {
		t.Fatalf("counters = %d", len(fb.counters))
	}
	if c := fb.counters[0]; c.name != TablesTotal || c.labels["status"] != "skipped" {
		t.Fatalf("counter = %+v", c)
	}
}

func TestRecordRowsIgnoresNonPositive(t *testing.T) {
	fb := install(t)

	RecordRows("job", "copied", 0)
	RecordRows("job", "copied", -3)
	RecordRows("job", "copied", 7)

	if len(fb.counters) != 1 {
		t.Fatalf("counters = %d, want 1", len(fb.counters))
	}
	if c := fb.counters[0]; c.name != RowsTotal || c.value != 7 || c.labels["kind"] != "copied" {
		t.Fatalf("counter = %+v", c)
	}
}

func TestSetBackendNilKeepsCurrent(t *testing.T) {
	fb := install(t)

	SetBackend(nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", fb.flushes)
	}
}

func TestNopBackend(t *testing.T) {
	var b Backend = nopBackend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
