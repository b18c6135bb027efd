// Package prompush pushes pipeline metrics to a Prometheus Pushgateway.
//
// Collectors live in a private registry and are pushed on Flush, grouped
// under the pipeline's job name. Batch jobs have no scrape surface, so the
// push model is the only way their metrics reach Prometheus.
package prompush

import (
	"fmt"

	"github.com/bened18/crypto-stock-etl/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend collects pipeline metrics and pushes them to a Pushgateway.
type Backend struct {
	gatewayURL string
	jobName    string // Pushgateway grouping key
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec   // etl_step_total
	stepDuration *prometheus.HistogramVec // etl_step_duration_seconds

	recordCounter *prometheus.CounterVec // etl_records_total
	batchCounter  prometheus.Counter     // etl_batches_total
}

// NewBackend builds a backend pushing to gatewayURL under jobName.
// An empty jobName falls back to "etl".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "etl"
	}

	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	// job is the Pushgateway grouping key, so collectors only carry
	// step and status as labels.
	return &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        reg,
		stepCounter: auto.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_step_total",
			Help: "Pipeline stage executions by stage and status.",
		}, []string{"step", "status"}),
		stepDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_step_duration_seconds",
			Help:    "Pipeline stage duration in seconds by stage and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step", "status"}),
		recordCounter: auto.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Records seen per kind (extracted, transformed, loaded).",
		}, []string{"kind"}),
		batchCounter: auto.NewCounter(prometheus.CounterOpts{
			Name: "etl_batches_total",
			Help: "Bulk-write batches flushed for this job.",
		}),
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "etl_step_total":
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case "etl_records_total":
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)

	case "etl_batches_total":
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "etl_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
