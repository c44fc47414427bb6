package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset generation pipeline.
type Metrics struct {
	SamplesGenerated prometheus.Counter
	SamplesSkipped   prometheus.Counter
	SampleFailures   prometheus.Counter
	GenerationActive prometheus.Gauge

	// Batch output metrics.
	BatchesWritten     *prometheus.CounterVec // label: split={train,val,test}
	BatchWriteDuration prometheus.Histogram

	// Event notification metrics.
	EventsPublished    prometheus.Counter
	EventPublishErrors prometheus.Counter
	NotifierEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SamplesGenerated,
		m.SamplesSkipped,
		m.SampleFailures,
		m.GenerationActive,
		m.BatchesWritten,
		m.BatchWriteDuration,
		m.EventsPublished,
		m.EventPublishErrors,
		m.NotifierEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SamplesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "icenet",
			Name:      "samples_generated_total",
			Help:      "Total training samples assembled across all splits.",
		}),
		SamplesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "icenet",
			Name:      "samples_skipped_total",
			Help:      "Samples skipped because their batch file already existed (pickup mode).",
		}),
		SampleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "icenet",
			Name:      "sample_failures_total",
			Help:      "Samples that failed to assemble.",
		}),
		GenerationActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "icenet",
			Name:      "generation_active",
			Help:      "1 while a dataset generation run is in progress.",
		}),
		BatchesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icenet",
			Name:      "batches_written_total",
			Help:      "Batch files written, by split.",
		}, []string{"split"}),
		BatchWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "icenet",
			Name:      "batch_write_duration_seconds",
			Help:      "Duration of encoding and writing one batch file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "icenet",
			Name:      "events_published_total",
			Help:      "Generation events published to the notification topic.",
		}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "icenet",
			Name:      "event_publish_errors_total",
			Help:      "Failures publishing generation events.",
		}),
		NotifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "icenet",
			Name:      "notifier_enabled",
			Help:      "1 when Kafka event notification is enabled, 0 otherwise.",
		}),
	}
}
