// Package datadog emits pipeline metrics to a Datadog agent over DogStatsD.
//
// Labels are rendered as "key:value" tags on every sample. Flush drains the
// client's buffer without closing it, so scheduled runs can flush per cycle.
package datadog

import (
	"fmt"

	"github.com/bened18/crypto-stock-etl/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds Datadog backend settings.
type Config struct {
	// Addr is the DogStatsD endpoint, e.g. "127.0.0.1:8125" or
	// "unix:///var/run/datadog/dsd.socket".
	Addr string

	// Namespace is prefixed to every metric name, e.g. "etl.".
	Namespace string

	// GlobalTags are added to every sample, e.g. "env:prod", "service:etl".
	GlobalTags []string
}

// Backend sends metrics to DogStatsD. Install it with metrics.SetBackend.
type Backend struct {
	client *statsd.Client
}

// NewBackend dials the DogStatsD endpoint in cfg.Addr.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter reports a Count sample. DogStatsD counts are integral, so
// fractional deltas are truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(name, int64(delta), tagList(labels), 1)
}

// ObserveHistogram reports a Histogram sample.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Histogram(name, value, tagList(labels), 1)
}

// Flush drains buffered samples to the agent. The client stays usable.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Flush()
}

// Close flushes and tears down the client. Call once at process shutdown.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func tagList(labels metrics.Labels) []string {
	if len(labels) == 0 {
		return nil
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		tags = append(tags, k+":"+v)
	}
	return tags
}
