package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockresearch"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheLookups *prometheus.CounterVec
	analyzerRuns *prometheus.CounterVec
	analyzerTime *prometheus.HistogramVec
	aggregates   *prometheus.CounterVec
	aggregateDur prometheus.Histogram
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indicator_cache_lookups_total",
				Help:      "Indicator cache lookups by outcome (hit, miss, stale, error)",
			},
			[]string{"outcome"},
		),
		analyzerRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyzer_runs_total",
				Help:      "Analyzer executions by module and outcome",
			},
			[]string{"module", "outcome"},
		),
		analyzerTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analyzer_duration_seconds",
				Help:      "Analyzer execution time",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"module"},
		),
		aggregates: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Completed aggregate analyses by overall signal",
			},
			[]string{"signal"},
		),
		aggregateDur: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "End to end AnalyzeStock duration",
				Buckets:   prometheus.DefBuckets,
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCacheLookup(outcome string) {
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordAnalyzerRun(module, outcome string, seconds float64) {
	r.analyzerRuns.WithLabelValues(module, outcome).Inc()
	r.analyzerTime.WithLabelValues(module).Observe(seconds)
}

func (r *Recorder) RecordAggregate(signal string, seconds float64) {
	r.aggregates.WithLabelValues(signal).Inc()
	r.aggregateDur.Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
