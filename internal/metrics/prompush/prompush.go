// Package prompush is a metrics.Backend that pushes to a Prometheus
// Pushgateway when flushed. A one-shot migration exits before anything could
// scrape it, so push is the only useful Prometheus mode.
package prompush

import (
	"fmt"

	"sqlite2mysql/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend collects migration metrics in a private registry.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	steps        *prometheus.CounterVec // step, status
	stepDuration *prometheus.SummaryVec // step, status
	tables       *prometheus.CounterVec // status
	rows         *prometheus.CounterVec // kind
}

// NewBackend builds a backend pushing to gatewayURL under the Pushgateway
// job jobName ("sqlite2mysql" when empty).
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sqlite2mysql"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Migration step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Migration step durations in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		tables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.TablesTotal,
			Help: "Tables processed by final status (copied, skipped, failed).",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows by kind (read, copied, failed).",
		}, []string{"kind"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"steps":         b.steps,
		"step duration": b.stepDuration,
		"tables":        b.tables,
		"rows":          b.rows,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// IncCounter implements metrics.Backend. The job label is carried by the
// Pushgateway grouping key, not by the series.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.steps.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.TablesTotal:
		b.tables.WithLabelValues(labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rows.WithLabelValues(labels["kind"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry, replacing the previous push for the job.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
