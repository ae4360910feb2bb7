// Package metrics collects batch metrics for one pipeline execution and
// exports them for the node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/sales"
)

// Prometheus metric names.
const (
	MetricRawRowsTotal         = "salesbi_raw_rows_total"
	MetricDroppedRowsTotal     = "salesbi_dropped_rows_total"
	MetricDerivedRows          = "salesbi_derived_rows"
	MetricRebuildDuration      = "salesbi_rebuild_duration_seconds"
	MetricRebuildFailuresTotal = "salesbi_rebuild_failures_total"
	MetricQualityPct           = "salesbi_quality_pct"
	MetricLastSuccess          = "salesbi_last_success_timestamp_seconds"
)

// Registry holds the pipeline's collectors on a private registry
type Registry struct {
	reg *prometheus.Registry

	RawRows         prometheus.Counter
	DroppedRows     *prometheus.CounterVec
	DerivedRows     *prometheus.GaugeVec
	RebuildDuration prometheus.Histogram
	RebuildFailures prometheus.Counter
	QualityPct      *prometheus.GaugeVec
	LastSuccess     prometheus.Gauge
}

// NewRegistry creates a Registry with every collector registered
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RawRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRawRowsTotal,
			Help: "Rows read from the raw extract.",
		}),
		DroppedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDroppedRowsTotal,
			Help: "Rows excluded from derivation, by the first null critical field.",
		}, []string{"reason"}),
		DerivedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricDerivedRows,
			Help: "Rows in each derived table after the last rebuild.",
		}, []string{"table"}),
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRebuildDuration,
			Help:    "Duration of the transactional rebuild.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		RebuildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRebuildFailuresTotal,
			Help: "Rebuilds rolled back.",
		}),
		QualityPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricQualityPct,
			Help: "Percentage metrics of the last quality report.",
		}, []string{"metric"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastSuccess,
			Help: "Unix time of the last successful run.",
		}),
	}
	r.reg.MustRegister(
		r.RawRows,
		r.DroppedRows,
		r.DerivedRows,
		r.RebuildDuration,
		r.RebuildFailures,
		r.QualityPct,
		r.LastSuccess,
	)
	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveRawRows adds n rows read from the extract
func (r *Registry) ObserveRawRows(n int) {
	r.RawRows.Add(float64(n))
}

// ObserveFilter records drop counts. Every reason gets a series, even at zero.
func (r *Registry) ObserveFilter(f sales.FilterResult) {
	for _, reason := range sales.DropReasons {
		r.DroppedRows.WithLabelValues(string(reason)).Add(float64(f.Dropped[reason]))
	}
}

// ObserveTables sets the derived row counts
func (r *Registry) ObserveTables(counts map[string]int) {
	for table, n := range counts {
		r.DerivedRows.WithLabelValues(table).Set(float64(n))
	}
}

// ObserveRebuild records a rebuild's duration and whether it failed
func (r *Registry) ObserveRebuild(d time.Duration, err error) {
	r.RebuildDuration.Observe(d.Seconds())
	if err != nil {
		r.RebuildFailures.Inc()
	}
}

// ObserveQuality sets the percentage gauges. Null percentages are left unset.
func (r *Registry) ObserveQuality(report *quality.Report) {
	for name, v := range report.Percentages() {
		f, _ := v.Float64()
		r.QualityPct.WithLabelValues(name).Set(f)
	}
}

// MarkSuccess records the completion time of a successful run
func (r *Registry) MarkSuccess(at time.Time) {
	r.LastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically so the collector never reads a partial write.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
