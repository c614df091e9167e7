package main

import (
	"log/slog"
	"strings"

	"sqlite2mysql/internal/config"
	"sqlite2mysql/internal/metrics"
	"sqlite2mysql/internal/metrics/datadog"
	"sqlite2mysql/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns a func
// that flushes it. A backend that cannot be created leaves the nop backend in
// place; metrics never fail a run.
func setupMetrics(c config.Config, log *slog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(c.Metrics.Backend) {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	case "pushgateway", "prom", "prometheus":
		b, err = prompush.NewBackend(c.Job, c.Metrics.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      c.Metrics.DatadogAddr,
			Namespace: c.Metrics.Namespace,
			Tags:      c.Metrics.Tags,
		})
	default:
		log.Warn("unknown metrics backend; metrics disabled", "backend", c.Metrics.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; using nop", "backend", c.Metrics.Backend, "err", err)
		return func() {}
	}

	log.Debug("metrics enabled", "backend", c.Metrics.Backend, "job", c.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "err", err)
		}
	}
}
