// Package metrics defines the Prometheus collectors of the ranking evaluation
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	QueriesScoredTotal *prometheus.CounterVec
	ScoringLatency     *prometheus.HistogramVec
	EvaluationsTotal   *prometheus.CounterVec
	MetricValue        *prometheus.GaugeVec
	ExperimentsTotal   *prometheus.CounterVec
	ExperimentDuration prometheus.Histogram
	TrainerRunsTotal   *prometheus.CounterVec
	TrainerDuration    *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	ReportsPublished   *prometheus.CounterVec
	ReportsStored      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates all collectors and registers them on reg. A nil reg gets a
// fresh registry so tests and one-shot commands never collide on the global
// one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		QueriesScoredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankeval_queries_scored_total",
				Help: "Queries scored against a corpus by engine and cache status (hit, miss, uncached).",
			},
			[]string{"engine", "cache_status"},
		),
		ScoringLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankeval_scoring_latency_seconds",
				Help:    "Latency of scoring one query over the whole corpus.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"engine"},
		),
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankeval_evaluations_total",
				Help: "Batch metric computations by metric.",
			},
			[]string{"metric"},
		),
		MetricValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rankeval_metric_value",
				Help: "Last mean value of a metric for an experiment run.",
			},
			[]string{"run", "metric"},
		),
		ExperimentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankeval_experiments_total",
				Help: "Experiments executed by status.",
			},
			[]string{"status"},
		),
		ExperimentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rankeval_experiment_duration_seconds",
				Help:    "Wall time of a full experiment.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		TrainerRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankeval_trainer_runs_total",
				Help: "Learning-to-rank trainer invocations by operation and status.",
			},
			[]string{"operation", "status"},
		),
		TrainerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankeval_trainer_duration_seconds",
				Help:    "Trainer invocation latency by operation.",
				Buckets: prometheus.ExponentialBuckets(0.1, 3, 8),
			},
			[]string{"operation"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rankeval_score_cache_hits_total",
				Help: "Score cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rankeval_score_cache_misses_total",
				Help: "Score cache misses.",
			},
		),
		ReportsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankeval_reports_published_total",
				Help: "Experiment reports published to the broker by status.",
			},
			[]string{"status"},
		),
		ReportsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankeval_reports_stored_total",
				Help: "Experiment reports persisted by status.",
			},
			[]string{"status"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.QueriesScoredTotal,
		m.ScoringLatency,
		m.EvaluationsTotal,
		m.MetricValue,
		m.ExperimentsTotal,
		m.ExperimentDuration,
		m.TrainerRunsTotal,
		m.TrainerDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ReportsPublished,
		m.ReportsStored,
	)

	return m
}

// ObserveTrainer records one trainer invocation. Its signature matches
// letor.Observer.
func (m *Metrics) ObserveTrainer(operation string, elapsed time.Duration, err error) {
	m.TrainerRunsTotal.WithLabelValues(operation, Status(err)).Inc()
	m.TrainerDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Status maps an error to the "success"/"error" label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler for m's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
