package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pm25"

// Metrics holds the Prometheus counters, histograms, and gauges for the batch.
type Metrics struct {
	RowsRead        *prometheus.CounterVec // labels: city
	RowsDropped     *prometheus.CounterVec // labels: city
	CitiesProcessed prometheus.Counter
	CityFailures    *prometheus.CounterVec // labels: reason={file_not_found,data_format,empty_dataset,other}
	SinkErrors      *prometheus.CounterVec // labels: sink
	BatchRunning    prometheus.Gauge

	CityProcessingDuration prometheus.Histogram

	// SeverityShare exposes the latest band shares. labels: city, source, band
	SeverityShare *prometheus.GaugeVec
}

// NewMetrics creates and registers all batch metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsDropped,
		m.CitiesProcessed,
		m.CityFailures,
		m.SinkErrors,
		m.BatchRunning,
		m.CityProcessingDuration,
		m.SeverityShare,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Source CSV rows read, including dropped rows.",
		}, []string{"city"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Source CSV rows dropped for a missing value.",
		}, []string{"city"}),
		CitiesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_processed_total",
			Help:      "Cities whose statistics were computed successfully.",
		}),
		CityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "city_failures_total",
			Help:      "Cities skipped because of an error, by reason.",
		}, []string{"reason"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed writes to a result sink.",
		}, []string{"sink"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while the batch is processing cities, 0 otherwise.",
		}),
		CityProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "city_processing_duration_seconds",
			Help:      "Duration of load, analysis, and sink writes for one city.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SeverityShare: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "severity_share",
			Help:      "Fraction of hours in a severity band, by city and source.",
		}, []string{"city", "source", "band"}),
	}
}
