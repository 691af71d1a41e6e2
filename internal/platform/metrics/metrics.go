// Package metrics counts import and scheduling activity. The clinic runs as a
// command line tool, so the registry is written to a node-exporter textfile
// at the end of a run instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes recorded by the import pipeline.
const (
	OutcomeImported = "imported"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Recorder holds the collectors in a private registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	importRows      *prometheus.CounterVec
	importBatches   *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
	overduePromoted prometheus.Counter
	recordsCreated  *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		importRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_import_rows_total",
				Help: "Import rows processed by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		importBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_import_batches_total",
				Help: "Import batches by kind and whether the batch ran",
			},
			[]string{"kind", "success"},
		),
		importDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_import_duration_seconds",
				Help:    "Wall time of an import batch",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		overduePromoted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clinic_appointments_overdue_promoted_total",
				Help: "Appointments moved from PENDING to OVERDUE",
			},
		),
		recordsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_records_created_total",
				Help: "Records created by type",
			},
			[]string{"record"},
		),
	}
}

// Registry exposes the underlying registry for callers that gather directly.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ImportRow(kind, outcome string) {
	if r == nil {
		return
	}
	r.importRows.WithLabelValues(kind, outcome).Inc()
}

// ImportBatch records a finished batch and how long it took.
func (r *Recorder) ImportBatch(kind string, success bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	r.importBatches.WithLabelValues(kind, label).Inc()
	r.importDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (r *Recorder) OverduePromoted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.overduePromoted.Add(float64(n))
}

func (r *Recorder) RecordCreated(record string) {
	if r == nil {
		return
	}
	r.recordsCreated.WithLabelValues(record).Inc()
}

// WriteTextfile writes the registry in the text exposition format to path.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
