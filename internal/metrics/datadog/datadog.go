// Package datadog is a metrics.Backend that forwards to a DogStatsD agent.
package datadog

import (
	"fmt"
	"sort"

	"sqlite2mysql/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds the DogStatsD settings.
type Config struct {
	// Addr is the agent address, "127.0.0.1:8125" or "unix:///path".
	Addr string

	// Namespace prefixes every metric name, e.g. "sqlite2mysql.".
	Namespace string

	// Tags are attached to every metric ("env:prod").
	Tags []string
}

// client is the subset of statsd.ClientInterface the backend uses.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// Backend implements metrics.Backend over a statsd client.
type Backend struct {
	client client
}

// NewBackend dials the agent described by cfg.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.Tags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter implements metrics.Backend. DogStatsD counts are integers.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	_ = b.client.Count(name, int64(delta), tags(labels), 1)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	_ = b.client.Histogram(name, value, tags(labels), 1)
}

// Flush sends buffered metrics and closes the client; the run is over by the
// time it is called.
func (b *Backend) Flush() error {
	if err := b.client.Flush(); err != nil {
		return fmt.Errorf("datadog: flush: %w", err)
	}
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("datadog: close: %w", err)
	}
	return nil
}

// tags renders labels as sorted "key:value" tags.
func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
