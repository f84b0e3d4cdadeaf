// Package metrics provides Prometheus metrics collection for the student
// personalizer. It covers model training, prediction serving, the
// prediction cache, and feature-matrix assembly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the analytics pipeline.
type Metrics struct {
	// Training metrics
	TrainingsTotal        prometheus.Counter   // Total number of successful trainings
	TrainingFailuresTotal prometheus.Counter   // Total number of failed trainings
	TrainingDuration      prometheus.Histogram // Duration of training runs in seconds

	// Prediction metrics
	PredictionsTotal        prometheus.Counter   // Total number of prediction computations
	PredictionFailuresTotal prometheus.Counter   // Total number of failed predictions
	PredictionLatency       prometheus.Histogram // Prediction latency in seconds
	ModelAge                prometheus.Gauge     // Age of the current models in seconds
	HighRiskStudents        prometheus.Gauge     // High-risk students in the last population scan

	// Cache metrics
	CacheHits   prometheus.Counter // Prediction cache hits
	CacheMisses prometheus.Counter // Prediction cache misses

	// Feature pipeline metrics
	FeatureBuildDuration prometheus.Histogram // Feature matrix assembly time in seconds
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing without polluting the global registry).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TrainingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trainings_total",
			Help: "Total number of successful model trainings",
		}),
		TrainingFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of failed model trainings",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction computations",
		}),
		PredictionFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed predictions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the currently persisted models in seconds",
		}),
		HighRiskStudents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "high_risk_students",
			Help: "Number of high-risk students in the last population scan",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_cache_hits_total",
			Help: "Total number of prediction cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_cache_misses_total",
			Help: "Total number of prediction cache misses",
		}),
		FeatureBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feature_build_duration_seconds",
			Help:    "Feature matrix assembly time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}
