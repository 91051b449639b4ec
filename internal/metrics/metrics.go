// Package metrics exposes Prometheus metrics for exclusion builds, manager
// connectivity, mover statistics, and warning/error log volume.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moversync/internal/exclusions"
	"moversync/internal/moverlogs"
)

const namespace = "moversync"

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal       *prometheus.CounterVec
	buildDuration     prometheus.Histogram
	buildEntries      *prometheus.GaugeVec
	sourceErrorsTotal *prometheus.CounterVec
	lastBuild         prometheus.Gauge
	lastSync          prometheus.Gauge
	managerUp         *prometheus.GaugeVec
	exclusionEntries  *prometheus.GaugeVec
	moverCounts       *prometheus.GaugeVec
	moverBytesKept    prometheus.Gauge
	moverEfficiency   prometheus.Gauge
	moverTrueRun      prometheus.Gauge
	logEventsTotal    *prometheus.CounterVec
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		buildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Exclusion builds by outcome",
		}, []string{"status"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of successful exclusion builds in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		buildEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_entries",
			Help:      "Entry counts of the last successful build",
		}, []string{"kind"}),
		sourceErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Exclusion sources that contributed nothing because they failed",
		}, []string{"source", "kind"}),
		lastBuild: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time of the last successful build",
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last full sync",
		}),
		managerUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manager_up",
			Help:      "Whether the last connectivity check of a manager succeeded",
		}, []string{"manager"}),
		exclusionEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exclusion_entries",
			Help:      "Entries in the exclusion file",
		}, []string{"type"}),
		moverCounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mover_entries",
			Help:      "Classified entries of the latest parsed mover run",
		}, []string{"result"}),
		moverBytesKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mover_bytes_kept",
			Help:      "Bytes kept on cache by the latest parsed mover run",
		}),
		moverEfficiency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mover_efficiency_percent",
			Help:      "Excluded share of excluded plus moved entries",
		}),
		moverTrueRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mover_true_run",
			Help:      "1 when the latest parsed mover run was a true run",
		}),
		logEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_events_total",
			Help:      "Warning and error log records by level",
		}, []string{"level"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.buildsTotal,
		m.buildDuration,
		m.buildEntries,
		m.sourceErrorsTotal,
		m.lastBuild,
		m.lastSync,
		m.managerUp,
		m.exclusionEntries,
		m.moverCounts,
		m.moverBytesKept,
		m.moverEfficiency,
		m.moverTrueRun,
		m.logEventsTotal,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// BuildFinished records one build outcome.
func (m *Metrics) BuildFinished(result exclusions.Result, err error) {
	switch {
	case errors.Is(err, exclusions.ErrBuildInProgress):
		m.buildsTotal.WithLabelValues("busy").Inc()
		return
	case err != nil:
		m.buildsTotal.WithLabelValues("error").Inc()
		return
	case len(result.SourceErrors) > 0:
		m.buildsTotal.WithLabelValues("partial").Inc()
	default:
		m.buildsTotal.WithLabelValues("success").Inc()
	}
	for _, se := range result.SourceErrors {
		m.sourceErrorsTotal.WithLabelValues(string(se.Source), se.Kind).Inc()
	}
	m.buildDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	m.buildEntries.WithLabelValues("written").Set(float64(result.TotalWritten))
	m.buildEntries.WithLabelValues("candidates").Set(float64(result.CandidateCount))
	m.buildEntries.WithLabelValues("skipped").Set(float64(result.SkippedCount))
	m.lastBuild.Set(float64(result.FinishedAt.Unix()))
}

// SyncFinished records the time of a full sync.
func (m *Metrics) SyncFinished(at time.Time) {
	m.lastSync.Set(float64(at.Unix()))
}

// ConnectionChecked records a manager connectivity result.
func (m *Metrics) ConnectionChecked(manager string, ok bool) {
	m.managerUp.WithLabelValues(manager).Set(boolGauge(ok))
}

// MoverStatsParsed records the latest mover run.
func (m *Metrics) MoverStatsParsed(stats moverlogs.Stats) {
	m.moverCounts.WithLabelValues("excluded").Set(float64(stats.Excluded))
	m.moverCounts.WithLabelValues("moved").Set(float64(stats.Moved))
	m.moverCounts.WithLabelValues("errors").Set(float64(stats.Errors))
	m.moverBytesKept.Set(float64(stats.BytesKept))
	m.moverEfficiency.Set(stats.Efficiency)
	m.moverTrueRun.Set(boolGauge(stats.Kind == moverlogs.KindTrueRun))
}

// ExclusionSummary records the exclusion file counts.
func (m *Metrics) ExclusionSummary(summary exclusions.Summary) {
	m.exclusionEntries.WithLabelValues("total").Set(float64(summary.TotalCount))
	m.exclusionEntries.WithLabelValues("files").Set(float64(summary.Files))
	m.exclusionEntries.WithLabelValues("directories").Set(float64(summary.Directories))
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
