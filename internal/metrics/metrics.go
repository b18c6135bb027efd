// Package metrics records operational counters and timings for pipeline
// runs behind one narrow Backend interface. The default backend discards
// everything, so call sites never check whether metrics are configured;
// cmd/etl swaps in a real backend (prompush, datadog) at startup. The
// shape mirrors how storage.Repository keeps concrete stores out of the
// rest of the code.
package metrics

import "time"

// Labels attach string key/value dimensions to one observation.
type Labels map[string]string

// Backend receives every metric the pipeline emits. Implementations map
// the wire names used by the helpers below onto their own system. Flush
// ships anything buffered (a Pushgateway push, a statsd drain) and runs
// once per pipeline run.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// nop discards all observations so metric calls are always safe.
type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}
func (nop) Flush() error                             { return nil }

var backend Backend = nop{}

// SetBackend swaps the process-wide backend. A nil argument leaves the
// current backend in place.
func SetBackend(b Backend) {
	if b != nil {
		backend = b
	}
}

// Flush forwards to the active backend.
func Flush() error { return backend.Flush() }

// RecordStep emits one execution count and one duration observation for a
// pipeline stage, labeled success or failure from err.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": statusOf(err)}
	backend.IncCounter("etl_step_total", 1, lbls)
	backend.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordRow adds delta to the record counter for one kind of row event
// (extracted, transformed, transform_dropped, loaded). Zero and negative
// deltas are dropped.
func RecordRow(job, kind string, delta int64) {
	if delta > 0 {
		backend.IncCounter("etl_records_total", float64(delta), Labels{"job": job, "kind": kind})
	}
}

// RecordBatches adds delta to the bulk-write batch counter. Zero and
// negative deltas are dropped.
func RecordBatches(job string, delta int64) {
	if delta > 0 {
		backend.IncCounter("etl_batches_total", float64(delta), Labels{"job": job})
	}
}
