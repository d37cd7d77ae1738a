// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for standardisation runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of this package. A dedicated registry keeps
// textfile exports free of Go runtime series unless explicitly added.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	rowsRead = factory.NewCounter(prometheus.CounterOpts{
		Name: "standardise_rows_read_total",
		Help: "Rows read from input datasets",
	})

	rowsWritten = factory.NewCounter(prometheus.CounterOpts{
		Name: "standardise_rows_written_total",
		Help: "Rows written to output datasets",
	})

	duplicatesRemoved = factory.NewCounter(prometheus.CounterOpts{
		Name: "standardise_duplicates_removed_total",
		Help: "Duplicate rows removed by the dedupe stage",
	})

	stageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "standardise_stage_duration_seconds",
		Help:    "Duration of each standardisation stage",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"stage"})

	stageFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "standardise_stage_failures_total",
		Help: "Stage failures; the stage is skipped and the run continues",
	}, []string{"stage"})

	runsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "standardise_runs_total",
		Help: "Standardisation runs by outcome",
	}, []string{"status"}) // status=success|degraded|failed

	lastRunTimestamp = factory.NewGauge(prometheus.GaugeOpts{
		Name: "standardise_last_run_timestamp_seconds",
		Help: "Unix time of the last finished run",
	})
)

// RecordRows adds to the row counters.
func RecordRows(read, written int) {
	rowsRead.Add(float64(read))
	rowsWritten.Add(float64(written))
}

// RecordDuplicates counts rows removed as duplicates.
func RecordDuplicates(n int) {
	duplicatesRemoved.Add(float64(n))
}

// ObserveStage records a stage duration in seconds and whether it failed.
func ObserveStage(stage string, seconds float64, failed bool) {
	stageDuration.WithLabelValues(stage).Observe(seconds)
	if failed {
		stageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordRun counts a finished run and stamps its completion time.
func RecordRun(status string, unixSeconds float64) {
	runsTotal.WithLabelValues(status).Inc()
	lastRunTimestamp.Set(unixSeconds)
}

// EnableRuntimeCollectors adds Go and process collectors, for long-running modes.
func EnableRuntimeCollectors() {
	_ = Registry.Register(collectors.NewGoCollector())
	_ = Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// WriteTextfile exports the registry in the node-exporter textfile format.
// The file is written atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
