// Package metrics counts scan activity and writes it in the Prometheus text
// format, for collection by a node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hashesdb/internal/hdb"
)

// ScanMetrics implements hdb.Recorder on a private registry.
type ScanMetrics struct {
	registry *prometheus.Registry

	filesScanned    prometheus.Counter
	filesFailed     prometheus.Counter
	hashes          *prometheus.CounterVec
	archiveLookups  *prometheus.CounterVec
	lastOutcome     prometheus.Gauge
	lastDuration    prometheus.Gauge
	lastCompletedAt prometheus.Gauge
}

func NewScanMetrics() *ScanMetrics {
	m := &ScanMetrics{
		registry: prometheus.NewRegistry(),
		filesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashesdb_files_scanned_total",
			Help: "Counts files whose hashes were stored in the catalog.",
		}),
		filesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashesdb_files_failed_total",
			Help: "Counts files that could not be stored in the catalog.",
		}),
		hashes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hashesdb_hashes_total",
				Help: "Counts hash computations by function and result.",
			},
			[]string{"function", "result"},
		),
		archiveLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hashesdb_archive_lookups_total",
				Help: "Counts content archive lookups by status.",
			},
			[]string{"status"},
		),
		lastOutcome: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hashesdb_last_scan_outcome",
			Help: "Outcome code of the last scan run.",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hashesdb_last_scan_duration_seconds",
			Help: "Wall time of the last scan run.",
		}),
		lastCompletedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hashesdb_last_scan_completed_timestamp_seconds",
			Help: "Unix time the last scan run finished.",
		}),
	}
	m.registry.MustRegister(m.filesScanned, m.filesFailed, m.hashes, m.archiveLookups,
		m.lastOutcome, m.lastDuration, m.lastCompletedAt)
	return m
}

func (m *ScanMetrics) FileScanned() { m.filesScanned.Inc() }
func (m *ScanMetrics) FileFailed()  { m.filesFailed.Inc() }

func (m *ScanMetrics) HashComputed(function string) {
	m.hashes.WithLabelValues(function, "ok").Inc()
}

func (m *ScanMetrics) HashFailed(function string) {
	m.hashes.WithLabelValues(function, "failed").Inc()
}

func (m *ScanMetrics) ArchiveResolved(status hdb.ArchiveStatus) {
	m.archiveLookups.WithLabelValues(status.String()).Inc()
}

// ScanFinished records the summary of a completed scan run.
func (m *ScanMetrics) ScanFinished(outcome hdb.Outcome, started, finished time.Time) {
	m.lastOutcome.Set(float64(outcome))
	m.lastDuration.Set(finished.Sub(started).Seconds())
	m.lastCompletedAt.Set(float64(finished.Unix()))
}

// Gatherer exposes the registry, mainly for tests.
func (m *ScanMetrics) Gatherer() prometheus.Gatherer { return m.registry }

// WriteTextfile atomically replaces path with the current metric values.
func (m *ScanMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

var _ hdb.Recorder = (*ScanMetrics)(nil)
